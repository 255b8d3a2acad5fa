package kpihttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers KPI endpoints onto a router already scoped to
// /companies/{companyID}.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/kpi", h.handleDashboard)
	r.Post("/kpi/invalidate", h.handleInvalidate)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/kpi/export.csv", h.handleCSV)
		gr.Get("/kpi/export.xlsx", h.handleXLSX)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key + ":" + chi.URLParam(r, "companyID"), nil
}
