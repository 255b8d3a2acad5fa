package conformityhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/terracore/terracore-pro/internal/billing"
	"github.com/terracore/terracore-pro/internal/conformity"
	"github.com/terracore/terracore-pro/internal/platform/httpx"
)

const requestTimeout = 3 * time.Second

// Checker evaluates stored documents.
type Checker interface {
	CheckQuote(ctx context.Context, companyID, quoteID uuid.UUID) (conformity.Report, error)
	CheckInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (conformity.Report, error)
}

// Handler exposes conformity reports over HTTP.
type Handler struct {
	logger   *slog.Logger
	checker  Checker
	verdicts *prometheus.CounterVec
}

// NewHandler constructs the handler and registers its verdict counter on reg.
// A nil registerer skips registration.
func NewHandler(logger *slog.Logger, checker Checker, reg prometheus.Registerer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	verdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "terracore_conformity_verdicts_total",
		Help: "Number of conformity evaluations by document kind and verdict.",
	}, []string{"kind", "verdict"})
	if reg != nil {
		reg.MustRegister(verdicts)
	}
	return &Handler{logger: logger, checker: checker, verdicts: verdicts}
}

// MountRoutes registers the endpoints on a router scoped to
// /companies/{companyID}.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/quotes/{documentID}/conformity", h.handle(conformity.KindQuote))
	r.Get("/invoices/{documentID}/conformity", h.handle(conformity.KindInvoice))
}

func (h *Handler) handle(kind conformity.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, err := httpx.UUIDParam(r, "companyID")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		documentID, err := httpx.UUIDParam(r, "documentID")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		var report conformity.Report
		switch kind {
		case conformity.KindQuote:
			report, err = h.checker.CheckQuote(ctx, companyID, documentID)
		default:
			report, err = h.checker.CheckInvoice(ctx, companyID, documentID)
		}
		if err != nil {
			h.respondError(w, kind, err)
			return
		}

		h.verdicts.WithLabelValues(string(kind), string(report.Verdict)).Inc()
		httpx.JSON(w, http.StatusOK, report)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, kind conformity.Kind, err error) {
	if errors.Is(err, billing.ErrNotFound) {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, kind))
		return
	}
	h.logger.Error("conformity check failed", slog.String("kind", string(kind)), slog.Any("error", err))
	httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrUpstream, kind))
}
