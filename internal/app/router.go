package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pasarhub/pasarhub/internal/admin"
	"github.com/pasarhub/pasarhub/internal/audit"
	"github.com/pasarhub/pasarhub/internal/auth"
	"github.com/pasarhub/pasarhub/internal/authz"
	"github.com/pasarhub/pasarhub/internal/dashboard"
	"github.com/pasarhub/pasarhub/internal/identity"
	"github.com/pasarhub/pasarhub/internal/observability"
	"github.com/pasarhub/pasarhub/internal/ratelimit"
	"github.com/pasarhub/pasarhub/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	Policy      *authz.RoutePolicy
	Provider    identity.Provider
	Resolver    *authz.Resolver
	Provisioner authz.Provisioner
	Gate        *authz.Gate
	Recorder    audit.Recorder
	Limiter     *ratelimit.Limiter

	AuthHandler      *auth.Handler
	ProfileHandler   profileRoutes
	AdminHandler     *admin.Handler
	AuditHandler     *audit.Handler
	DashboardHandler *dashboard.Handler

	Metrics *observability.Metrics
}

// profileRoutes is the mounting surface of the profile handler.
type profileRoutes interface {
	MountRoutes(r chi.Router)
}

// NewRouter constructs the chi.Router with Pasarhub defaults. Every
// request passes the gate first; each protected area re-validates at its
// own entry with an independent guard.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Policy:         params.Policy,
		Recorder:       params.Recorder,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(params.Gate.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/welcome", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"app":"pasarhub"}`))
	})

	// Public catalog surfaces. Browsing needs no account, so these sit
	// outside every protected prefix.
	r.Get("/products", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[]}`))
	})
	r.Get("/vendors", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"vendors":[]}`))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			http.Redirect(w, r, "/welcome", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/dashboard/user", http.StatusSeeOther)
	})

	// Explanatory destinations for non-allow verdicts.
	r.Get(authz.PendingPath, params.DashboardHandler.PendingApproval)
	r.Get(authz.SuspendedPath, params.DashboardHandler.AccountSuspended)
	r.Get(authz.DeniedPath, params.DashboardHandler.Unauthorized)

	// The gate redirects unauthenticated requests here; API clients POST
	// their credentials to the same path.
	r.Get("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"login_required"}`))
	})

	params.AuthHandler.MountRoutes(r,
		params.Limiter.Middleware(ratelimit.ClassLogin, ratelimit.KeyByIP, params.Logger),
		params.Limiter.Middleware(ratelimit.ClassSignup, ratelimit.KeyByIP, params.Logger),
	)

	guard := func(area string) func(http.Handler) http.Handler {
		return authz.NewGuard(area, params.Policy, params.Provider, params.Resolver, params.Provisioner, params.Recorder, params.Metrics, params.Logger).Middleware
	}

	r.Route("/account", func(r chi.Router) {
		r.Use(guard("/account"))
		r.Use(params.Limiter.Middleware(ratelimit.ClassAPI, ratelimit.KeyBySessionUser, params.Logger))
		params.ProfileHandler.MountRoutes(r)
	})

	r.Route("/dashboard/user", func(r chi.Router) {
		r.Use(guard("/dashboard/user"))
		r.Use(params.Limiter.Middleware(ratelimit.ClassAPI, ratelimit.KeyBySessionUser, params.Logger))
		params.DashboardHandler.MountArea(r, "user")
	})

	r.Route("/dashboard/vendor", func(r chi.Router) {
		r.Use(guard("/dashboard/vendor"))
		r.Use(params.Limiter.Middleware(ratelimit.ClassVendorAPI, ratelimit.KeyBySessionUser, params.Logger))
		params.DashboardHandler.MountArea(r, "vendor")
	})

	r.Route("/dashboard/technician", func(r chi.Router) {
		r.Use(guard("/dashboard/technician"))
		r.Use(params.Limiter.Middleware(ratelimit.ClassAPI, ratelimit.KeyBySessionUser, params.Logger))
		params.DashboardHandler.MountArea(r, "technician")
	})

	r.Route("/admin", func(r chi.Router) {
		// Admin actions are throttled before the guard re-validates, so
		// a hammering client is cut off ahead of any authorization work.
		r.Use(params.Limiter.Middleware(ratelimit.ClassAdminAPI, ratelimit.KeyBySessionUser, params.Logger))
		r.Use(guard("/admin"))
		params.DashboardHandler.MountArea(r, "admin")
		params.AdminHandler.MountRoutes(r)
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
