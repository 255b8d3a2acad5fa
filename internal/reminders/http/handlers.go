package remindershttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/terracore/terracore-pro/internal/billing"
	"github.com/terracore/terracore-pro/internal/platform/httpx"
	"github.com/terracore/terracore-pro/internal/reminders"
)

const requestTimeout = 3 * time.Second

// ReminderService renders timelines and client risk.
type ReminderService interface {
	Timeline(ctx context.Context, companyID, workflowID uuid.UUID) (reminders.Timeline, error)
	ClientRisk(ctx context.Context, companyID, clientID uuid.UUID) (reminders.ClientRiskReport, error)
}

// Handler exposes reminder endpoints.
type Handler struct {
	logger  *slog.Logger
	service ReminderService
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service ReminderService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the endpoints on a router scoped to
// /companies/{companyID}.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/reminders/{workflowID}/timeline", h.handleTimeline)
	r.Get("/clients/{clientID}/risk", h.handleRisk)
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	companyID, workflowID, err := ids(r, "workflowID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	timeline, err := h.service.Timeline(ctx, companyID, workflowID)
	if err != nil {
		h.respondError(w, "timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, timeline)
}

func (h *Handler) handleRisk(w http.ResponseWriter, r *http.Request) {
	companyID, clientID, err := ids(r, "clientID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.ClientRisk(ctx, companyID, clientID)
	if err != nil {
		h.respondError(w, "client risk", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func ids(r *http.Request, param string) (uuid.UUID, uuid.UUID, error) {
	companyID, err := httpx.UUIDParam(r, "companyID")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := httpx.UUIDParam(r, param)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return companyID, id, nil
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, billing.ErrNotFound) {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, op))
		return
	}
	h.logger.Error("reminders handler error", slog.String("op", op), slog.Any("error", err))
	httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrUpstream, op))
}
