package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/terracore/terracore-pro/internal/jobs"
)

// Bumper drops cached dashboards. *kpi.Cache implements it.
type Bumper interface {
	Bump(ctx context.Context) error
}

// KPIInvalidateJob bumps the KPI cache version from the worker, so write
// paths outside this process can invalidate without a Redis client of their own.
type KPIInvalidateJob struct {
	Cache   Bumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewKPIInvalidateJob wires the cache into the handler.
func NewKPIInvalidateJob(cache Bumper, logger *slog.Logger, metrics *jobmetrics.Metrics) *KPIInvalidateJob {
	return &KPIInvalidateJob{Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes TaskKPIInvalidate tasks.
func (j *KPIInvalidateJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Cache == nil {
		return errors.New("kpi invalidate: handler not configured")
	}
	var payload KPIInvalidatePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("kpi invalidate: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskKPIInvalidate)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := j.Cache.Bump(ctx); err != nil {
		logger.Error("bump kpi cache", slog.String("job", TaskKPIInvalidate), slog.Any("error", err))
		return err
	}
	logger.Info("kpi cache invalidated", slog.String("job", TaskKPIInvalidate), slog.String("reason", payload.Reason))
	return nil
}
