package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pasarhub/pasarhub/internal/shared"
	_ "github.com/pasarhub/pasarhub/testing"
)

func TestRespondErrorMapsDomainSentinels(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"shared not found", fmt.Errorf("load profile: %w", shared.ErrNotFound), http.StatusNotFound},
		{"wrapped duplicate", fmt.Errorf("email already registered: %w", ErrDuplicate), http.StatusConflict},
		{"wrapped validation", fmt.Errorf("role does not require approval: %w", ErrValidation), http.StatusBadRequest},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"invalid credentials", shared.ErrInvalidCredentials, http.StatusUnauthorized},
		{"unknown", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
				t.Fatalf("expected json content type, got %q", ct)
			}
		})
	}
}

func TestRespondErrorHidesUnknownDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: connection reset at 10.0.0.3"))
	if strings.Contains(rec.Body.String(), "10.0.0.3") {
		t.Fatalf("internal detail leaked: %s", rec.Body.String())
	}
}
