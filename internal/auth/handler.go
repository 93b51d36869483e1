package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pasarhub/pasarhub/internal/audit"
	"github.com/pasarhub/pasarhub/internal/authz"
	"github.com/pasarhub/pasarhub/internal/platform/httpx"
	"github.com/pasarhub/pasarhub/internal/profile"
	"github.com/pasarhub/pasarhub/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	recorder       audit.Recorder
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, recorder audit.Recorder) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		recorder:       recorder,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router. Login and
// signup get their own throttling middlewares so brute force and account
// flooding are cut off before any credential work happens.
func (h *Handler) MountRoutes(r chi.Router, loginLimit, signupLimit func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if loginLimit != nil {
			r.Use(loginLimit)
		}
		r.Post("/login", h.handleLogin)
	})
	r.Group(func(r chi.Router) {
		if signupLimit != nil {
			r.Use(signupLimit)
		}
		r.Post("/signup", h.handleSignup)
	})
	r.Post("/logout", h.handleLogout)
	r.Get("/csrf", h.handleCSRFToken)
}

// HandleLoginForTest exposes the login handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleSignupForTest exposes the signup handler for tests.
func (h *Handler) HandleSignupForTest(w http.ResponseWriter, r *http.Request) {
	h.handleSignup(w, r)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=user vendor technician"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and password are required")
		return
	}

	token, prof, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.audit(r, "auth.login", "anonymous", audit.StatusUnauthorized, "invalid_credentials")
		} else {
			h.logger.Error("login", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	// Rotate the session ID on the privilege boundary.
	if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
		h.logger.Error("renew session", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(prof.ID)
	sess.SetToken(token)
	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, prof.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	h.audit(r, "auth.login", prof.ID, audit.StatusSuccess, "")
	httpx.JSON(w, http.StatusOK, map[string]any{
		"token":    token,
		"redirect": redirectTarget(r, prof.Role),
	})
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid signup payload")
		return
	}
	requested := profile.Role(req.Role)
	if req.Role == "" {
		requested = profile.RoleUser
	}

	token, prof, err := h.service.SignUp(r.Context(), req.Email, req.Password, requested)
	if err != nil {
		if !errors.Is(err, ErrEmailTaken) {
			h.logger.Error("signup", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetUser(prof.ID)
		sess.SetToken(token)
	}

	h.audit(r, "auth.signup", prof.ID, audit.StatusSuccess, string(prof.ApprovalStatus))
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"token":           token,
		"approval_status": prof.ApprovalStatus,
		"redirect":        redirectTarget(r, prof.Role),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleCSRFToken returns the session's CSRF token so browser clients can
// attach it to state-changing requests.
func (h *Handler) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"csrf_token": token})
}

func (h *Handler) audit(r *http.Request, action, actor string, status audit.Status, reason string) {
	if h.recorder == nil {
		return
	}
	h.recorder.Record(r.Context(), audit.Event{
		Action:  action,
		ActorID: actor,
		Status:  status,
		Reason:  reason,
		Route:   r.URL.Path,
	})
}

// redirectTarget honours an explicit ?redirect= only when it is a local
// path, otherwise points the user at their own dashboard.
func redirectTarget(r *http.Request, role profile.Role) string {
	if target := r.URL.Query().Get("redirect"); len(target) > 1 && target[0] == '/' && target[1] != '/' {
		return target
	}
	return authz.DashboardFor(role)
}
