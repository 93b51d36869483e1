// Package dashboard holds the thin area entry points sitting behind the
// route guards, plus the explanatory destinations the gate redirects to.
// The real area features (listings, orders, job boards) are separate
// consumers of the authorization decision.
package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pasarhub/pasarhub/internal/authz"
	"github.com/pasarhub/pasarhub/internal/identity"
	"github.com/pasarhub/pasarhub/internal/platform/httpx"
	"github.com/pasarhub/pasarhub/internal/profile"
	"github.com/pasarhub/pasarhub/internal/shared"
)

// Handler serves the dashboard entry points and status pages.
type Handler struct {
	provider identity.Provider
	resolver *authz.Resolver
}

// NewHandler constructs a dashboard Handler. The provider/resolver pair is
// only used on the public status pages to point an identity at its own
// area; both may be nil.
func NewHandler(provider identity.Provider, resolver *authz.Resolver) *Handler {
	return &Handler{provider: provider, resolver: resolver}
}

// MountArea attaches the entry endpoint for one protected area.
func (h *Handler) MountArea(r chi.Router, area string) {
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		p := authz.ProfileFromContext(req.Context())
		if p == nil {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{
			"area":  area,
			"id":    p.ID,
			"email": p.Email,
			"role":  p.Role,
		})
	})
}

// PendingApproval explains the pending/rejected state to the user.
func (h *Handler) PendingApproval(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":  "pending_approval",
		"message": "Akun Anda sedang menunggu persetujuan admin.",
	})
}

// AccountSuspended explains the suspended state.
func (h *Handler) AccountSuspended(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":  "account_suspended",
		"message": "Akun Anda ditangguhkan. Hubungi dukungan pelanggan.",
	})
}

// Unauthorized points a role-denied identity at its own dashboard instead
// of a dead end. The page is public, so the profile is resolved here from
// the session token rather than taken from a gate decision.
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "unauthorized"}
	if p := h.currentProfile(r); p != nil {
		body["dashboard"] = authz.DashboardFor(p.Role)
	}
	httpx.JSON(w, http.StatusForbidden, body)
}

func (h *Handler) currentProfile(r *http.Request) *profile.Profile {
	if h.provider == nil || h.resolver == nil {
		return nil
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.Token() == "" {
		return nil
	}
	ident, claims, err := h.provider.VerifyToken(r.Context(), sess.Token())
	if err != nil {
		return nil
	}
	p, err := h.resolver.Resolve(r.Context(), ident, claims)
	if err != nil {
		return nil
	}
	return &p
}
