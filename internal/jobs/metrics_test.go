package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	next:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue next
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	assert.NoError(t, m.Track("kpi:warmup").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("kpi:warmup").End(boom), boom)

	assert.Equal(t, 1.0, counterValue(t, reg, "terracore_jobs_total", map[string]string{"job": "kpi:warmup", "status": "success"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "terracore_jobs_total", map[string]string{"job": "kpi:warmup", "status": "failure"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "terracore_jobs_failures_total", map[string]string{"job": "kpi:warmup"}))
}

func TestAddWarmed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.AddWarmed("", 2)
	m.AddWarmed("current_month", 0)
	m.AddWarmed("current_month", 3)

	assert.Equal(t, 2.0, counterValue(t, reg, "terracore_kpi_dashboards_warmed_total", map[string]string{"preset": "default"}))
	assert.Equal(t, 3.0, counterValue(t, reg, "terracore_kpi_dashboards_warmed_total", map[string]string{"preset": "current_month"}))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddWarmed("x", 1)
	assert.NoError(t, m.Track("job").End(nil))
}
