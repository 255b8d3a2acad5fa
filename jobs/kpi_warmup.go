package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/terracore/terracore-pro/internal/jobs"
	"github.com/terracore/terracore-pro/internal/kpi"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DashboardLoader computes, and caches, one dashboard.
type DashboardLoader interface {
	Dashboard(ctx context.Context, filter kpi.Filter) (kpi.Dashboard, error)
}

// CompanyLister enumerates the companies to warm.
type CompanyLister interface {
	ListCompanyIDs(ctx context.Context) ([]uuid.UUID, error)
}

// KPIWarmupJob pre-populates the KPI cache so the first dashboard view of
// the day is served from Redis.
type KPIWarmupJob struct {
	Dashboards DashboardLoader
	Companies  CompanyLister
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	Timeout    time.Duration
}

// NewKPIWarmupJob wires dependencies for the warmup handler.
func NewKPIWarmupJob(dashboards DashboardLoader, companies CompanyLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *KPIWarmupJob {
	return &KPIWarmupJob{
		Dashboards: dashboards,
		Companies:  companies,
		Logger:     logger,
		Metrics:    metrics,
		Timeout:    20 * time.Second,
	}
}

// Handle processes TaskKPIWarmup tasks.
func (j *KPIWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Dashboards == nil {
		return errors.New("kpi warmup: handler not configured")
	}
	var payload KPIWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("kpi warmup: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskKPIWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()
	companies, err := j.companies(ctx, payload.CompanyID)
	if err != nil {
		logger.Error("load warmup companies", slog.Any("error", err))
		return err
	}
	if len(companies) == 0 {
		logger.Info("no companies to warm")
		return nil
	}

	presets := warmupPresets(payload.Presets)
	warmed := make(map[kpi.Preset]int, len(presets))
	for _, companyID := range companies {
		for _, preset := range presets {
			if err := j.warm(ctx, companyID, preset); err != nil {
				logger.Error("warm dashboard",
					slog.String("company_id", companyID.String()),
					slog.String("preset", string(preset)),
					slog.Any("error", err))
				return err
			}
			warmed[preset]++
		}
	}
	for preset, n := range warmed {
		j.metrics().AddWarmed(string(preset), n)
	}

	logger.Info("completed kpi warmup",
		slog.Int("companies", len(companies)),
		slog.Int("presets", len(presets)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *KPIWarmupJob) warm(ctx context.Context, companyID uuid.UUID, preset kpi.Preset) error {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := j.Dashboards.Dashboard(ctx, kpi.Filter{CompanyID: companyID, Preset: preset})
	return err
}

func (j *KPIWarmupJob) companies(ctx context.Context, only uuid.UUID) ([]uuid.UUID, error) {
	if only != uuid.Nil {
		return []uuid.UUID{only}, nil
	}
	if j.Companies == nil {
		return nil, errors.New("kpi warmup: company lister not configured")
	}
	return j.Companies.ListCompanyIDs(ctx)
}

func (j *KPIWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskKPIWarmup))
	}
	return slog.Default().With(slog.String("job", TaskKPIWarmup))
}

func (j *KPIWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
