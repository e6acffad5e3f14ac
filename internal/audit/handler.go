package audit

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/auth"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platform/httpx"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// Handler exposes the per-period audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   auth.Middleware
}

// NewHandler constructs an audit HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(shared.CapAuditView))
		r.Get("/periods/{period}/audit", h.timeline)
	})
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	period, err := shared.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "código de periodo inválido")
		return
	}
	entries, err := h.service.Timeline(r.Context(), period)
	if err != nil {
		h.logger.Error("audit timeline", slog.String("period", period.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"period": period.String(), "entries": entries})
}
