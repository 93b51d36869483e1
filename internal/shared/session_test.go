package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pasarhub/pasarhub/internal/shared"
	_ "github.com/pasarhub/pasarhub/testing"
)

func commitSession(t *testing.T, sm *shared.SessionManager, sess *shared.Session) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := sm.Commit(context.Background(), rec, httptest.NewRequest(http.MethodGet, "/", nil), sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sm.CookieName() {
			return c
		}
	}
	t.Fatalf("session cookie not written")
	return nil
}

func TestLoadNeverAdoptsUnknownCookieID(t *testing.T) {
	sm, _ := newSessionHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "attacker-chosen-id"})
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if sess.ID == "attacker-chosen-id" {
		t.Fatalf("client-supplied session ID was adopted")
	}

	cookie := commitSession(t, sm, sess)
	if cookie.Value == "attacker-chosen-id" {
		t.Fatalf("client-supplied session ID survived commit")
	}
	if cookie.Value == "" {
		t.Fatalf("expected a server-generated session ID")
	}
}

func TestRenewRotatesSessionID(t *testing.T) {
	sm, csrf := newSessionHarness(t)
	sess := loadSession(t, sm)

	token, err := csrf.EnsureToken(context.Background(), sess)
	if err != nil {
		t.Fatalf("ensure token: %v", err)
	}
	oldCookie := commitSession(t, sm, sess)

	if err := sm.Renew(context.Background(), sess); err != nil {
		t.Fatalf("renew session: %v", err)
	}
	if sess.ID == oldCookie.Value {
		t.Fatalf("session ID not rotated")
	}
	newCookie := commitSession(t, sm, sess)
	if newCookie.Value == oldCookie.Value {
		t.Fatalf("cookie still carries the old session ID")
	}

	// The old server-side state is gone; the new ID keeps the values.
	staleReq := httptest.NewRequest(http.MethodGet, "/", nil)
	staleReq.AddCookie(oldCookie)
	stale, err := sm.Load(context.Background(), staleReq)
	if err != nil {
		t.Fatalf("load stale session: %v", err)
	}
	if stale.Get(shared.CSRFSessionKey) != "" {
		t.Fatalf("old session state still readable after renew")
	}

	freshReq := httptest.NewRequest(http.MethodGet, "/", nil)
	freshReq.AddCookie(newCookie)
	fresh, err := sm.Load(context.Background(), freshReq)
	if err != nil {
		t.Fatalf("load renewed session: %v", err)
	}
	if fresh.Get(shared.CSRFSessionKey) != token {
		t.Fatalf("session values lost across renew")
	}
}
