package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/advances"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/audit"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/auth"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/closure"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/earnings"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/rates"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/jobs"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Auth            auth.Middleware
	RatesHandler    *rates.Handler
	EarningsHandler *earnings.Handler
	ClosureHandler  *closure.Handler
	AdvancesHandler *advances.Handler
	AuditHandler    *audit.Handler
	ReportHandler   *report.Handler
	JobHandler      *jobs.Handler
	Pool            *pgxpool.Pool
}

// NewRouter constructs the chi.Router with the payout API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				params.Logger.Error("readiness ping failed", slog.Any("error", err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(params.Auth.Authenticate)
		if params.RatesHandler != nil {
			params.RatesHandler.MountRoutes(r)
		}
		if params.EarningsHandler != nil {
			params.EarningsHandler.MountRoutes(r)
		}
		if params.ClosureHandler != nil {
			params.ClosureHandler.MountRoutes(r)
		}
		if params.AdvancesHandler != nil {
			params.AdvancesHandler.MountRoutes(r)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(r)
		}
		if params.ReportHandler != nil {
			params.ReportHandler.MountRoutes(r)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
