package rates

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

type rateService interface {
	Resolve(ctx context.Context, scope Scope, asOf time.Time) (Set, error)
	CreateRate(ctx context.Context, in CreateRateInput) (Rate, error)
	ActiveRates(ctx context.Context, scope Scope) ([]Rate, error)
}

// Handler wires rate administration endpoints.
type Handler struct {
	logger   *slog.Logger
	service  rateService
	guard    auth.Middleware
	validate *validator.Validate
}

// NewHandler constructs a rates HTTP handler.
func NewHandler(logger *slog.Logger, service rateService, guard auth.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		guard:    guard,
		validate: validator.New(),
	}
}

// MountRoutes registers rate routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/rates", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(shared.CapRatesView))
			r.Get("/", h.listActive)
			r.Get("/effective", h.effective)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(shared.CapRatesEdit))
			r.Post("/", h.create)
		})
	})
}

type rateView struct {
	ID             int64           `json:"id"`
	Scope          Scope           `json:"scope"`
	Kind           Kind            `json:"kind"`
	RawValue       decimal.Decimal `json:"raw_value"`
	Adjustment     decimal.Decimal `json:"adjustment"`
	EffectiveValue decimal.Decimal `json:"effective_value"`
	Source         string          `json:"source,omitempty"`
	ValidFrom      time.Time       `json:"valid_from"`
	ValidTo        *time.Time      `json:"valid_to,omitempty"`
}

func newRateView(rate Rate) rateView {
	return rateView{
		ID:             rate.ID,
		Scope:          rate.Scope,
		Kind:           rate.Kind,
		RawValue:       rate.RawValue,
		Adjustment:     rate.Adjustment,
		EffectiveValue: rate.EffectiveValue,
		Source:         rate.Source,
		ValidFrom:      rate.ValidFrom,
		ValidTo:        rate.ValidTo,
	}
}

func (h *Handler) listActive(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromQuery(r)
	rows, err := h.service.ActiveRates(r.Context(), scope)
	if err != nil {
		h.logger.Error("list active rates", slog.String("scope", string(scope)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]rateView, 0, len(rows))
	for _, rate := range rows {
		views = append(views, newRateView(rate))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"scope": scope, "rates": views})
}

func (h *Handler) effective(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromQuery(r)
	asOf := time.Now().UTC()
	if raw := strings.TrimSpace(r.URL.Query().Get("at")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "el parámetro at debe ser RFC3339")
			return
		}
		asOf = parsed
	}
	set, err := h.service.Resolve(r.Context(), scope, asOf)
	if err != nil {
		h.logger.Warn("resolve rates", slog.String("scope", string(scope)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"scope": scope, "as_of": asOf, "rates": set})
}

type createRateRequest struct {
	Scope      string          `json:"scope"`
	GroupID    int64           `json:"group_id" validate:"omitempty,gt=0"`
	Kind       string          `json:"kind" validate:"required"`
	RawValue   decimal.Decimal `json:"raw_value" validate:"required"`
	Adjustment decimal.Decimal `json:"adjustment"`
	Source     string          `json:"source" validate:"omitempty,max=120"`
	ValidFrom  *time.Time      `json:"valid_from"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	scope := ScopeGlobal
	if req.GroupID > 0 {
		scope = GroupScope(req.GroupID)
	} else if s := strings.TrimSpace(req.Scope); s != "" && s != string(ScopeGlobal) {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "alcance desconocido; use group_id para grupos")
		return
	}
	kind, err := ParseKind(req.Kind)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "tipo de tasa desconocido")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	input := CreateRateInput{
		Scope:      scope,
		Kind:       kind,
		RawValue:   req.RawValue,
		Adjustment: req.Adjustment,
		Source:     strings.TrimSpace(req.Source),
		ActorID:    actor.ID,
	}
	if req.ValidFrom != nil {
		input.ValidFrom = req.ValidFrom.UTC()
	}
	rate, err := h.service.CreateRate(r.Context(), input)
	if err != nil {
		h.logger.Warn("create rate",
			slog.String("scope", string(scope)),
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("rate created",
		slog.Int64("id", rate.ID),
		slog.String("scope", string(rate.Scope)),
		slog.String("kind", string(rate.Kind)),
		slog.Int64("actor_id", actor.ID),
	)
	httpx.JSON(w, http.StatusCreated, newRateView(rate))
}

func scopeFromQuery(r *http.Request) Scope {
	if raw := strings.TrimSpace(r.URL.Query().Get("group_id")); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return GroupScope(id)
		}
	}
	return ScopeGlobal
}
