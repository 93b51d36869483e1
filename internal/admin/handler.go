package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pasarhub/pasarhub/internal/authz"
	"github.com/pasarhub/pasarhub/internal/platform/httpx"
	"github.com/pasarhub/pasarhub/internal/profile"
	"github.com/pasarhub/pasarhub/internal/shared"
)

// Handler exposes the administrator workflow over HTTP. Mounted under
// /admin, behind the admin route guard, the admin API rate limit and the
// CSRF check.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs an admin Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches the admin workflow routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/approvals/pending", h.listPending)
	r.Post("/approvals/{id}/approve", h.approve)
	r.Post("/approvals/{id}/reject", h.reject)
	r.Post("/accounts/{id}/suspend", h.suspend)
	r.Post("/accounts/{id}/reinstate", h.reinstate)
	r.Post("/accounts/{id}/role", h.setRole)
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	profiles, err := h.service.PendingApprovals(r.Context(), limit)
	if err != nil {
		h.logger.Error("list pending approvals", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

func (h *Handler) suspend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Suspend)
}

func (h *Handler) reinstate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reinstate)
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) setRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	actor := actorID(r)
	if actor == "" {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	err := h.service.SetRole(r.Context(), actor, chi.URLParam(r, "id"), profile.Role(req.Role))
	h.respond(w, err)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actorID, targetID string) error) {
	actor := actorID(r)
	if actor == "" {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	h.respond(w, op(r.Context(), actor, chi.URLParam(r, "id")))
}

func (h *Handler) respond(w http.ResponseWriter, err error) {
	if err == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}
	if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, httpx.ErrValidation) {
		h.logger.Error("admin transition", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

// actorID reads the administrator's identity resolved by the gate.
func actorID(r *http.Request) string {
	if p := authz.ProfileFromContext(r.Context()); p != nil {
		return p.ID
	}
	return ""
}
