package closure

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/auth"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platform/httpx"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/rates"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// Handler wires closure and correction endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    auth.Middleware
	validate *validator.Validate
}

// NewHandler constructs a closure HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		guard:    guard,
		validate: validator.New(),
	}
}

// MountRoutes registers closure routes. Paths are registered flat because the
// audit package shares the /periods/{period} prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	run := h.guard.Require(shared.CapClosureRun)
	r.With(run).Get("/periods/{period}/status", h.status)
	r.With(run).Get("/periods/{period}/records", h.listRecords)
	r.With(run).Post("/periods/{period}/close", h.closePeriod)
	r.With(h.guard.Require(shared.CapClosureEdit)).
		Post("/periods/{period}/rates/correction", h.correctRates)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	period, ok := periodParam(w, r)
	if !ok {
		return
	}
	status, err := h.service.PeriodState(r.Context(), period)
	if err != nil {
		h.logger.Error("period status", slog.String("period", period.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"period": period.String(), "status": status})
}

type archivedRecordView struct {
	ID                 uuid.UUID       `json:"id"`
	ModelID            int64           `json:"model_id"`
	PlatformID         string          `json:"platform_id"`
	RawValue           decimal.Decimal `json:"raw_value"`
	PlatformPercentage decimal.Decimal `json:"platform_percentage"`
	RatesUsed          rates.Set       `json:"rates_used"`
	Gross              decimal.Decimal `json:"gross"`
	ModelSettlement    decimal.Decimal `json:"model_settlement"`
	ModelLocal         decimal.Decimal `json:"model_local"`
	ArchivedAt         *time.Time      `json:"archived_at,omitempty"`
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	period, ok := periodParam(w, r)
	if !ok {
		return
	}
	records, err := h.service.ArchivedRecords(r.Context(), period, nil)
	if err != nil {
		h.logger.Error("list archived records", slog.String("period", period.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]archivedRecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, archivedRecordView{
			ID:                 rec.ID,
			ModelID:            rec.ModelID,
			PlatformID:         rec.PlatformID,
			RawValue:           rec.RawValue,
			PlatformPercentage: rec.PlatformPercentage,
			RatesUsed:          rec.RatesUsed,
			Gross:              rec.Gross,
			ModelSettlement:    rec.ModelSettlement,
			ModelLocal:         rec.ModelLocal,
			ArchivedAt:         rec.ArchivedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"period": period.String(), "records": views})
}

func (h *Handler) closePeriod(w http.ResponseWriter, r *http.Request) {
	period, ok := periodParam(w, r)
	if !ok {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	manifest, err := h.service.ClosePeriod(r.Context(), period)
	if err != nil {
		if errors.Is(err, ErrClosureInProgress) {
			httpx.Problem(w, http.StatusConflict, "Closure In Progress", shared.UserSafeMessage(shared.ErrLockHeld))
			return
		}
		h.logger.Error("close period",
			slog.String("period", period.String()),
			slog.Int64("actor_id", actor.ID),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("period closed",
		slog.String("period", period.String()),
		slog.Int("archived", len(manifest.Archived)),
		slog.Int("skipped", len(manifest.Skipped)),
		slog.Int64("actor_id", actor.ID),
	)
	httpx.JSON(w, http.StatusOK, manifest)
}

type correctionRequest struct {
	Rates    rates.Set `json:"rates" validate:"required"`
	ModelIDs []int64   `json:"model_ids" validate:"omitempty,dive,gt=0"`
}

func (h *Handler) correctRates(w http.ResponseWriter, r *http.Request) {
	period, ok := periodParam(w, r)
	if !ok {
		return
	}
	var req correctionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	result, err := h.service.CorrectPeriodRates(r.Context(), CorrectionInput{
		Period:      period,
		NewRates:    req.Rates,
		Actor:       actor,
		ModelFilter: req.ModelIDs,
	})
	if err != nil {
		h.logger.Warn("correct period rates",
			slog.String("period", period.String()),
			slog.Int64("actor_id", actor.ID),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("period rates corrected",
		slog.String("period", period.String()),
		slog.Int("updated", result.UpdatedCount),
		slog.Int("failed", len(result.Errors)),
		slog.Int64("actor_id", actor.ID),
	)
	httpx.JSON(w, http.StatusOK, result)
}

func periodParam(w http.ResponseWriter, r *http.Request) (shared.Period, bool) {
	period, err := shared.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "código de periodo inválido, use AAAA-MM-H1 o AAAA-MM-H2")
		return shared.Period{}, false
	}
	return period, true
}
