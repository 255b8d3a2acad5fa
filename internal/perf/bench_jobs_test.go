package perf

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/terracore/terracore-pro/internal/jobs"
	"github.com/terracore/terracore-pro/internal/kpi"
	"github.com/terracore/terracore-pro/jobs"
)

func TestKPIWarmupThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)

	source := memSource{data: map[uuid.UUID]dataset{}}
	for i := 0; i < 4; i++ {
		ds := syntheticDataset(50, 1500)
		source.data[ds.companyID] = ds
	}
	service := kpi.NewService(source, nil)
	service.WithNow(func() time.Time { return benchNow })

	job := jobs.NewKPIWarmupJob(service, source, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	task, err := jobs.NewKPIWarmupTask(jobs.KPIWarmupPayload{})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := job.Handle(context.Background(), task); err != nil {
			t.Fatalf("warmup run %d: %v", i, err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if got := metricValue(t, families, "terracore_jobs_total", map[string]string{"job": jobs.TaskKPIWarmup, "status": "success"}); got != 5 {
		t.Fatalf("expected 5 successful runs, got %f", got)
	}
	// 5 runs over 4 companies
	if got := metricValue(t, families, "terracore_kpi_dashboards_warmed_total", map[string]string{"preset": string(kpi.PresetThisYear)}); got != 20 {
		t.Fatalf("expected 20 warmed yearly dashboards, got %f", got)
	}
	if mean := histogramMean(t, families, "terracore_job_duration_seconds", map[string]string{"job": jobs.TaskKPIWarmup}); mean > 2.0 {
		t.Fatalf("warmup duration above budget: %f", mean)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
			found++
		}
	}
	return found == len(labels)
}
