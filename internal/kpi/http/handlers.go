package kpihttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"github.com/terracore/terracore-pro/internal/kpi"
	"github.com/terracore/terracore-pro/internal/kpi/export"
	"github.com/terracore/terracore-pro/internal/platform/httpx"
)

const requestTimeout = 5 * time.Second

// DashboardService computes dashboards for a filter.
type DashboardService interface {
	Dashboard(ctx context.Context, filter kpi.Filter) (kpi.Dashboard, error)
}

// Invalidator drops every cached dashboard. kpi.Cache satisfies it, as does
// the job enqueuer that defers the bump to the worker.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Handler serves the KPI dashboard and its exports.
type Handler struct {
	logger      *slog.Logger
	service     DashboardService
	invalidator Invalidator
	validate    *validator.Validate
	csvPool     sync.Pool
}

// NewHandler constructs the KPI HTTP handler. invalidator may be nil, in which
// case the invalidate endpoint answers 503.
func NewHandler(logger *slog.Logger, service DashboardService, invalidator Invalidator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:      logger,
		service:     service,
		invalidator: invalidator,
		validate:    validator.New(),
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

type dashboardQuery struct {
	Preset string `validate:"omitempty,oneof=this_month this_quarter this_year custom"`
	From   string `validate:"required_if=Preset custom,omitempty,datetime=2006-01-02"`
	To     string `validate:"required_if=Preset custom,omitempty,datetime=2006-01-02"`
	Year   int    `validate:"omitempty,min=2000,max=2100"`
	Top    int    `validate:"omitempty,min=1,max=50"`
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	dashboard, err := h.service.Dashboard(ctx, filter)
	if err != nil {
		h.respondServiceError(w, "load dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dashboard)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	dashboard, err := h.service.Dashboard(ctx, filter)
	if err != nil {
		h.respondServiceError(w, "load dashboard", err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteDashboardCSV(buf, dashboard, formatterFor(r)); err != nil {
		h.respondServiceError(w, "write kpi csv", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", exportName(dashboard, "csv")))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handleXLSX(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	dashboard, err := h.service.Dashboard(ctx, filter)
	if err != nil {
		h.respondServiceError(w, "load dashboard", err)
		return
	}

	data, err := export.WriteDashboardXLSX(dashboard, formatterFor(r))
	if err != nil {
		h.respondServiceError(w, "write kpi xlsx", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", exportName(dashboard, "xlsx")))
	if _, err := w.Write(data); err != nil {
		h.logError("stream xlsx", err)
	}
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if _, err := httpx.UUIDParam(r, "companyID"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.invalidator == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Cache Disabled", "no dashboard cache is configured")
		return
	}
	if err := h.invalidator.Bump(r.Context()); err != nil {
		h.respondServiceError(w, "invalidate kpi cache", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) parseFilter(r *http.Request) (kpi.Filter, error) {
	companyID, err := httpx.UUIDParam(r, "companyID")
	if err != nil {
		return kpi.Filter{}, err
	}

	q := r.URL.Query()
	query := dashboardQuery{
		Preset: strings.TrimSpace(q.Get("preset")),
		From:   strings.TrimSpace(q.Get("from")),
		To:     strings.TrimSpace(q.Get("to")),
	}
	if query.Year, err = intParam(q.Get("year"), "year"); err != nil {
		return kpi.Filter{}, err
	}
	if query.Top, err = intParam(q.Get("top"), "top"); err != nil {
		return kpi.Filter{}, err
	}
	if err := h.validate.Struct(query); err != nil {
		return kpi.Filter{}, validationError(err)
	}
	// Explicit bounds without a preset mean a custom range; with a named
	// preset they would be ignored, so they are refused.
	if query.From != "" || query.To != "" {
		switch query.Preset {
		case "":
			if query.From == "" || query.To == "" {
				return kpi.Filter{}, fmt.Errorf("%w: from and to must be given together", httpx.ErrValidation)
			}
			query.Preset = string(kpi.PresetCustom)
		case string(kpi.PresetCustom):
		default:
			return kpi.Filter{}, fmt.Errorf("%w: from and to only apply to preset=custom", httpx.ErrValidation)
		}
	}

	filter := kpi.Filter{
		CompanyID: companyID,
		Preset:    kpi.Preset(query.Preset),
		Year:      query.Year,
		TopN:      query.Top,
	}
	if query.From != "" {
		from, _ := time.Parse(time.DateOnly, query.From)
		filter.From = &from
	}
	if query.To != "" {
		to, _ := time.Parse(time.DateOnly, query.To)
		filter.To = &to
	}
	return filter, nil
}

func intParam(raw, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", httpx.ErrValidation, field)
	}
	return value, nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
	}
	return fmt.Errorf("%w: invalid %s", httpx.ErrValidation, strings.Join(fields, ", "))
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	var fetchErr *kpi.FetchError
	switch {
	case errors.Is(err, kpi.ErrInvalidPeriod):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	case errors.As(err, &fetchErr):
		h.logError(op, err)
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrUpstream, fetchErr.Entity))
	default:
		h.logError(op, err)
		httpx.RespondError(w, err)
	}
}

func (h *Handler) logError(op string, err error) {
	h.logger.Error("kpi handler error", slog.String("op", op), slog.Any("error", err))
}

func formatterFor(r *http.Request) export.Formatter {
	tag := language.Und
	if raw := strings.TrimSpace(r.URL.Query().Get("lang")); raw != "" {
		if parsed, err := language.Parse(raw); err == nil {
			tag = parsed
		}
	} else if header := r.Header.Get("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
			tag = tags[0]
		}
	}
	return export.NewFormatter(tag)
}

func exportName(d kpi.Dashboard, ext string) string {
	return fmt.Sprintf("kpi-%s-%s.%s", d.Period.Start.Format("20060102"), d.Period.End.AddDate(0, 0, -1).Format("20060102"), ext)
}
