package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	conformityhttp "github.com/terracore/terracore-pro/internal/conformity/http"
	kpihttp "github.com/terracore/terracore-pro/internal/kpi/http"
	"github.com/terracore/terracore-pro/internal/observability"
	"github.com/terracore/terracore-pro/internal/platform/httpx"
	remindershttp "github.com/terracore/terracore-pro/internal/reminders/http"
	"github.com/terracore/terracore-pro/jobs"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	KPIHandler        *kpihttp.Handler
	ConformityHandler *conformityhttp.Handler
	RemindersHandler  *remindershttp.Handler
	JobHandler        *jobs.Handler
	Database          Pinger
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with TerraCore defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if params.Database != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := params.Database.Ping(ctx); err != nil {
				logger.Warn("readiness check failed", slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Not Ready", "database unreachable")
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	var tokens []string
	if params.Config != nil {
		tokens = params.Config.APITokens
	}
	r.Group(func(r chi.Router) {
		r.Use(RequireToken(tokens, logger))
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
		r.Route("/companies/{companyID}", func(r chi.Router) {
			if params.KPIHandler != nil {
				params.KPIHandler.MountRoutes(r)
			}
			if params.ConformityHandler != nil {
				params.ConformityHandler.MountRoutes(r)
			}
			if params.RemindersHandler != nil {
				params.RemindersHandler.MountRoutes(r)
			}
		})
	})

	return r
}
