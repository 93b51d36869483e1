package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasarhub/pasarhub/internal/audit"
	"github.com/pasarhub/pasarhub/internal/authz"
	"github.com/pasarhub/pasarhub/internal/shared"
	_ "github.com/pasarhub/pasarhub/testing"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordedEvents) Record(_ context.Context, event audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordedEvents) all() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}

type stackHarness struct {
	handler  http.Handler
	csrf     *shared.CSRFManager
	recorder *recordedEvents
}

func newStackHarness(t *testing.T) *stackHarness {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := &stackHarness{
		csrf:     shared.NewCSRFManager("middleware-test-csrf"),
		recorder: &recordedEvents{},
	}

	cfg := MiddlewareConfig{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:         &Config{AppEnv: "development", AppRequestTimeout: 5 * time.Second},
		SessionManager: shared.NewSessionManager(client, "pasarhub_session", "session-secret", time.Hour, false),
		CSRFManager:    h.csrf,
		Policy:         authz.DefaultPolicy(),
		Recorder:       h.recorder,
	}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if r.URL.Path == "/token" {
			token, err := h.csrf.EnsureToken(r.Context(), sess)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(token))
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	var handler http.Handler = final
	stack := MiddlewareStack(cfg)
	for i := len(stack) - 1; i >= 0; i-- {
		handler = stack[i](handler)
	}
	h.handler = handler
	return h
}

// fetchToken bootstraps a session and returns its CSRF token plus the
// session cookie for follow-up requests.
func (h *stackHarness) fetchToken(t *testing.T) (string, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/token", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "pasarhub_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "session cookie not set")
	require.NotEmpty(t, rec.Body.String())
	return rec.Body.String(), cookie
}

func TestMiddlewareSecurityHeaders(t *testing.T) {
	h := newStackHarness(t)

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/welcome", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "default-src 'self'", rec.Header().Get("Content-Security-Policy"))
}

func TestMiddlewareCSRFProtectedWrite(t *testing.T) {
	h := newStackHarness(t)
	token, cookie := h.fetchToken(t)

	// Without the token the write is rejected and audited.
	req := httptest.NewRequest(http.MethodPost, "/account/profile", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	events := h.recorder.all()
	require.Len(t, events, 1)
	assert.Equal(t, "csrf.reject", events[0].Action)
	assert.Equal(t, "/account/profile", events[0].Route)

	// With the session-bound token it passes.
	req = httptest.NewRequest(http.MethodPost, "/account/profile", nil)
	req.AddCookie(cookie)
	req.Header.Set(shared.CSRFHeader, token)
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareCSRFTokenFromOtherSessionRejected(t *testing.T) {
	h := newStackHarness(t)
	tokenA, _ := h.fetchToken(t)
	_, cookieB := h.fetchToken(t)

	req := httptest.NewRequest(http.MethodPost, "/account/profile", nil)
	req.AddCookie(cookieB)
	req.Header.Set(shared.CSRFHeader, tokenA)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddlewareCSRFSkipsPublicAndReadPaths(t *testing.T) {
	h := newStackHarness(t)

	// Reads never need a token.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/account/profile", nil)
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Writes outside the protected prefixes pass; login carries no token.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareSessionPersistsAcrossRequests(t *testing.T) {
	h := newStackHarness(t)
	token, cookie := h.fetchToken(t)

	// The same session yields the same token on a later request.
	req := httptest.NewRequest(http.MethodGet, "/token", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, token, rec.Body.String())
}
