package ratelimit

import (
	"log/slog"
	"net/http"

	"github.com/pasarhub/pasarhub/internal/platform/httpx"
	"github.com/pasarhub/pasarhub/internal/shared"
)

// KeyFunc derives the throttling identifier from a request.
type KeyFunc func(r *http.Request) string

// KeyByIP keys on the client address. chi's RealIP middleware runs earlier
// in the chain, so RemoteAddr already holds the forwarded address.
func KeyByIP(r *http.Request) string {
	return r.RemoteAddr
}

// KeyBySessionUser keys on the authenticated subject, falling back to the
// client address for anonymous requests.
func KeyBySessionUser(r *http.Request) string {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && sess.User() != "" {
		return sess.User()
	}
	return KeyByIP(r)
}

// Middleware throttles one action class before authorization runs. A store
// failure rejects the request: under-throttling on infrastructure trouble
// would be a security regression, not a performance one.
func (l *Limiter) Middleware(class string, keyFn KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = KeyByIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := keyFn(r)
			throttled, err := l.ShouldThrottle(r.Context(), class, identifier)
			if err != nil {
				if logger != nil {
					logger.Error("rate limit check", slog.String("class", class), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "")
				return
			}
			if throttled {
				if l.OnLimited != nil {
					l.OnLimited(class)
				}
				_, resetAt, peekErr := l.Remaining(r.Context(), class, identifier)
				if peekErr != nil && logger != nil {
					logger.Warn("rate limit remaining", slog.String("class", class), slog.Any("error", peekErr))
				}
				httpx.TooManyRequests(w, resetAt)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
