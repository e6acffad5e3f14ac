package advances

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/auth"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/platform/httpx"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// Handler wires advance, deduction and savings endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    auth.Middleware
	validate *validator.Validate
}

// NewHandler constructs an advances HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		guard:    guard,
		validate: validator.New(),
	}
}

// MountRoutes registers advance routes. Paths are registered flat because
// several packages share the /models/{modelID} prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	request := h.guard.RequireAny(shared.CapAdvancesRequest, shared.CapAdvancesManage)
	deductions := h.guard.Require(shared.CapDeductionsEdit)

	r.With(request).Get("/models/{modelID}/advances/available", h.available)
	r.With(request).Get("/models/{modelID}/advances/{period}", h.listAdvances)
	r.With(request).Post("/models/{modelID}/advances", h.requestAdvance)

	r.With(h.guard.RequireAny(shared.CapEarningsView, shared.CapDeductionsEdit)).
		Get("/models/{modelID}/deductions/{period}", h.listDeductions)
	r.With(deductions).Post("/models/{modelID}/deductions", h.addDeduction)
	r.With(deductions).Delete("/deductions/{id}", h.removeDeduction)

	r.With(h.guard.Require(shared.CapSavingsRequest)).
		Post("/models/{modelID}/savings", h.requestSavings)

	r.Route("/advances/{id}", func(r chi.Router) {
		r.Use(request)
		r.Post("/approve", h.transition(StatusApproved))
		r.Post("/reject", h.transition(StatusRejected))
		r.Post("/disburse", h.transition(StatusDisbursed))
		r.Post("/confirm", h.transition(StatusConfirmed))
		r.Post("/cancel", h.transition(StatusCancelled))
	})
}

func (h *Handler) available(w http.ResponseWriter, r *http.Request) {
	modelID, ok := modelIDParam(w, r)
	if !ok {
		return
	}
	amount, err := h.service.AvailableAdvance(r.Context(), modelID)
	if err != nil {
		h.logger.Error("advance availability", slog.Int64("model_id", modelID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"model_id": modelID, "available": amount})
}

type requestAdvanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) requestAdvance(w http.ResponseWriter, r *http.Request) {
	modelID, ok := modelIDParam(w, r)
	if !ok {
		return
	}
	var req requestAdvanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	adv, err := h.service.RequestAdvance(r.Context(), actor, modelID, req.Amount)
	if err != nil {
		h.logger.Warn("request advance",
			slog.Int64("model_id", modelID),
			slog.Int64("actor_id", actor.ID),
			slog.Any("error", err),
		)
		h.respondAdvanceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, adv)
}

func (h *Handler) listAdvances(w http.ResponseWriter, r *http.Request) {
	modelID, ok := modelIDParam(w, r)
	if !ok {
		return
	}
	period, ok := periodParam(w, r)
	if !ok {
		return
	}
	advs, err := h.service.Advances(r.Context(), modelID, period)
	if err != nil {
		h.logger.Error("list advances", slog.Int64("model_id", modelID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"period": period.String(), "advances": advs})
}

func (h *Handler) transition(target Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "id de anticipo inválido")
			return
		}
		actor, _ := shared.ActorFromContext(r.Context())
		adv, err := h.service.Transition(r.Context(), actor, id, target)
		if err != nil {
			h.logger.Warn("advance transition",
				slog.Int64("advance_id", id),
				slog.String("target", string(target)),
				slog.Int64("actor_id", actor.ID),
				slog.Any("error", err),
			)
			h.respondAdvanceError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, adv)
	}
}

type addDeductionRequest struct {
	Period  string          `json:"period" validate:"required"`
	Concept string          `json:"concept" validate:"required,max=240"`
	Amount  decimal.Decimal `json:"amount"`
}

func (h *Handler) addDeduction(w http.ResponseWriter, r *http.Request) {
	modelID, ok := modelIDParam(w, r)
	if !ok {
		return
	}
	var req addDeductionRequest
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
	actor, _ := shared.ActorFromContext(r.Context())
	ded, err := h.service.AddDeduction(r.Context(), actor, Deduction{
		ModelID: modelID,
		Period:  period,
		Concept: strings.TrimSpace(req.Concept),
		Amount:  req.Amount,
	})
	if err != nil {
		h.logger.Warn("add deduction",
			slog.Int64("model_id", modelID),
			slog.Int64("actor_id", actor.ID),
			slog.Any("error", err),
		)
		h.respondAdvanceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ded)
}

func (h *Handler) removeDeduction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "id de deducción inválido")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.RemoveDeduction(r.Context(), actor, id); err != nil {
		h.logger.Warn("remove deduction", slog.Int64("deduction_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listDeductions(w http.ResponseWriter, r *http.Request) {
	modelID, ok := modelIDParam(w, r)
	if !ok {
		return
	}
	period, ok := periodParam(w, r)
	if !ok {
		return
	}
	deds, err := h.service.Deductions(r.Context(), modelID, period)
	if err != nil {
		h.logger.Error("list deductions", slog.Int64("model_id", modelID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"period": period.String(), "deductions": deds})
}

type savingsRequestBody struct {
	Period     string          `json:"period" validate:"required"`
	Percentage decimal.Decimal `json:"percentage"`
}

func (h *Handler) requestSavings(w http.ResponseWriter, r *http.Request) {
	modelID, ok := modelIDParam(w, r)
	if !ok {
		return
	}
	var req savingsRequestBody
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
	actor, _ := shared.ActorFromContext(r.Context())
	saving, err := h.service.RequestSavings(r.Context(), actor, modelID, period, req.Percentage)
	if err != nil {
		h.logger.Warn("request savings",
			slog.Int64("model_id", modelID),
			slog.Int64("actor_id", actor.ID),
			slog.Any("error", err),
		)
		h.respondAdvanceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, saving)
}

// respondAdvanceError maps the package's own failures before falling back to
// the shared taxonomy.
func (h *Handler) respondAdvanceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAmountExceedsAvailable):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Amount Exceeds Available", "el monto supera el anticipo disponible")
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", "el anticipo no admite este cambio de estado")
	default:
		httpx.RespondError(w, err)
	}
}

func modelIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "modelID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "id de modelo inválido")
		return 0, false
	}
	return id, true
}

func periodParam(w http.ResponseWriter, r *http.Request) (shared.Period, bool) {
	period, err := shared.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "código de periodo inválido, use AAAA-MM-H1 o AAAA-MM-H2")
		return shared.Period{}, false
	}
	return period, true
}

