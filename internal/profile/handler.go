package profile

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pasarhub/pasarhub/internal/platform/httpx"
	"github.com/pasarhub/pasarhub/internal/shared"
)

// Handler exposes self-service profile endpoints under /account. Role,
// approval status and account status never appear in the update path; the
// repository's UPDATE statement could not touch them even if they did.
type Handler struct {
	logger    *slog.Logger
	store     Store
	validator *validator.Validate
}

// NewHandler constructs a profile Handler.
func NewHandler(logger *slog.Logger, store Store) *Handler {
	return &Handler{logger: logger, store: store, validator: validator.New()}
}

// MountRoutes attaches the self-service routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/profile", h.show)
	r.Put("/profile", h.update)
}

type updateRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
	City  string `json:"city" validate:"omitempty,max=80"`
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	subject := currentSubject(r)
	if subject == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	p, err := h.store.Find(r.Context(), subject)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("show profile", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	subject := currentSubject(r)
	if subject == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid profile payload")
		return
	}
	p, err := h.store.UpdateSelf(r.Context(), subject, req.Name, req.Phone, req.City)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("update profile", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func currentSubject(r *http.Request) string {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.User()
	}
	return ""
}
