package report

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/auth"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platform/httpx"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// Handler serves payout statements.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   auth.Middleware
}

// NewHandler constructs a report handler.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(shared.CapEarningsView))
		r.Get("/models/{modelID}/statement/{period}", h.statement)
	})
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	modelID, err := strconv.ParseInt(chi.URLParam(r, "modelID"), 10, 64)
	if err != nil || modelID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "id de modelo inválido")
		return
	}
	period, err := shared.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "código de periodo inválido")
		return
	}
	stmt, err := h.service.Statement(r.Context(), modelID, period)
	if err != nil {
		h.logger.Warn("build statement",
			slog.Int64("model_id", modelID),
			slog.String("period", period.String()),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(stmt.Render()))
		return
	}
	httpx.JSON(w, http.StatusOK, stmt)
}
