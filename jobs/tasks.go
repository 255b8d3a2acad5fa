package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/terracore/terracore-pro/internal/kpi"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskKPIWarmup precomputes dashboards into the KPI cache.
	TaskKPIWarmup = "kpi:warmup"
	// TaskKPIInvalidate drops every cached dashboard.
	TaskKPIInvalidate = "kpi:invalidate"
)

// KPIWarmupPayload scopes a warmup run. An empty CompanyID warms every
// company; empty Presets warms the three calendar presets.
type KPIWarmupPayload struct {
	CompanyID uuid.UUID    `json:"company_id,omitempty"`
	Presets   []kpi.Preset `json:"presets,omitempty"`
}

// KPIInvalidatePayload records why the cache was dropped.
type KPIInvalidatePayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewKPIWarmupTask constructs a warmup task.
func NewKPIWarmupTask(payload KPIWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskKPIWarmup, data), nil
}

// NewKPIInvalidateTask constructs an invalidation task.
func NewKPIInvalidateTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(KPIInvalidatePayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskKPIInvalidate, data), nil
}

func warmupPresets(requested []kpi.Preset) []kpi.Preset {
	if len(requested) == 0 {
		return []kpi.Preset{kpi.PresetThisMonth, kpi.PresetThisQuarter, kpi.PresetThisYear}
	}
	out := make([]kpi.Preset, 0, len(requested))
	for _, p := range requested {
		// custom needs explicit bounds, which a scheduled run never has
		if p == kpi.PresetCustom || p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
