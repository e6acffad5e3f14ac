package earnings

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/auth"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platform/httpx"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

type earningsService interface {
	Aggregate(ctx context.Context, modelID int64, period shared.Period) (AggregateResult, error)
	RecordValue(ctx context.Context, value PlatformValue) (PlatformValue, error)
}

// Handler wires per-model earnings endpoints.
type Handler struct {
	logger   *slog.Logger
	service  earningsService
	guard    auth.Middleware
	validate *validator.Validate
}

// NewHandler constructs an earnings HTTP handler.
func NewHandler(logger *slog.Logger, service earningsService, guard auth.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		guard:    guard,
		validate: validator.New(),
	}
}

// MountRoutes registers earnings routes. Paths are registered flat because
// several packages share the /models/{modelID} prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	view := h.guard.Require(shared.CapEarningsView)
	edit := h.guard.Require(shared.CapEarningsEdit)
	r.With(view).Get("/models/{modelID}/earnings/{period}", h.aggregate)
	r.With(view).Get("/models/{modelID}/earnings", h.aggregateCurrent)
	r.With(edit).Put("/models/{modelID}/values/{platformID}", h.recordValue)
}

func (h *Handler) aggregate(w http.ResponseWriter, r *http.Request) {
	modelID, ok := modelIDParam(w, r)
	if !ok {
		return
	}
	period, err := shared.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "código de periodo inválido, use AAAA-MM-H1 o AAAA-MM-H2")
		return
	}
	h.respondAggregate(w, r, modelID, period)
}

// aggregateCurrent answers for the period containing the request instant.
func (h *Handler) aggregateCurrent(w http.ResponseWriter, r *http.Request) {
	modelID, ok := modelIDParam(w, r)
	if !ok {
		return
	}
	h.respondAggregate(w, r, modelID, shared.PeriodContaining(time.Now().UTC()))
}

func (h *Handler) respondAggregate(w http.ResponseWriter, r *http.Request, modelID int64, period shared.Period) {
	result, err := h.service.Aggregate(r.Context(), modelID, period)
	if err != nil {
		h.logger.Error("aggregate earnings",
			slog.Int64("model_id", modelID),
			slog.String("period", period.String()),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type recordValueRequest struct {
	Period   string          `json:"period" validate:"required"`
	RawValue decimal.Decimal `json:"raw_value"`
}

func (h *Handler) recordValue(w http.ResponseWriter, r *http.Request) {
	modelID, ok := modelIDParam(w, r)
	if !ok {
		return
	}
	platformID := strings.TrimSpace(chi.URLParam(r, "platformID"))
	var req recordValueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	period, err := shared.ParsePeriod(req.Period)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "código de periodo inválido")
		return
	}
	stored, err := h.service.RecordValue(r.Context(), PlatformValue{
		ModelID:    modelID,
		PlatformID: platformID,
		Period:     period,
		RawValue:   req.RawValue,
	})
	if err != nil {
		h.logger.Warn("record platform value",
			slog.Int64("model_id", modelID),
			slog.String("platform_id", platformID),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"model_id":    stored.ModelID,
		"platform_id": stored.PlatformID,
		"period":      stored.Period.String(),
		"raw_value":   stored.RawValue,
	})
}

func modelIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "modelID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "id de modelo inválido")
		return 0, false
	}
	return id, true
}
