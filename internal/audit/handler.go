package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pasarhub/pasarhub/internal/platform/httpx"
)

// Handler exposes the operator read contracts over HTTP. Mounted inside
// the admin area, behind the admin route guard.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs an audit Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches audit read routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/actors/{actorID}", h.eventsForActor)
	r.Get("/actors/{actorID}/failures", h.recentFailures)
	r.Get("/actions", h.eventsByActionPrefix)
}

func (h *Handler) eventsForActor(w http.ResponseWriter, r *http.Request) {
	actorID := chi.URLParam(r, "actorID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ascending := r.URL.Query().Get("order") == "asc"
	events, err := h.service.EventsForActor(r.Context(), actorID, limit, ascending)
	if err != nil {
		h.logger.Error("audit events for actor", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) recentFailures(w http.ResponseWriter, r *http.Request) {
	actorID := chi.URLParam(r, "actorID")
	window, _ := strconv.Atoi(r.URL.Query().Get("window_minutes"))
	events, err := h.service.RecentFailuresForActor(r.Context(), actorID, window)
	if err != nil {
		h.logger.Error("audit recent failures", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) eventsByActionPrefix(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "prefix query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.service.EventsByActionPrefix(r.Context(), prefix, limit)
	if err != nil {
		h.logger.Error("audit events by action", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": events})
}
