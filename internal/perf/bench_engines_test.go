package perf

import (
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/terracore/terracore-pro/internal/billing"
	"github.com/terracore/terracore-pro/internal/conformity"
	"github.com/terracore/terracore-pro/internal/kpi"
	"github.com/terracore/terracore-pro/internal/reminders"
)

func dashboardInput(ds dataset) kpi.Input {
	period, _ := kpi.ResolvePeriod(kpi.PresetThisYear, benchNow, nil, nil)
	return kpi.Input{
		CompanyID: ds.companyID,
		Period:    period,
		Year:      benchNow.Year(),
		Now:       benchNow,
		TopN:      kpi.DefaultTopClients,
		Invoices:  ds.invoices,
		Quotes:    ds.quotes,
		Clients:   ds.clients,
	}
}

// A mid-size landscaping company bills a few thousand invoices a year; an
// uncached dashboard over them has to stay interactive.
func TestDashboardLatencyTarget(t *testing.T) {
	in := dashboardInput(syntheticDataset(200, 5000))

	samples := make([]time.Duration, 0, 20)
	for i := 0; i < 20; i++ {
		start := time.Now()
		d := kpi.Compute(in)
		samples = append(samples, time.Since(start))
		if len(d.TopClients) != kpi.DefaultTopClients {
			t.Fatalf("expected %d top clients, got %d", kpi.DefaultTopClients, len(d.TopClients))
		}
	}

	if p95 := percentile95(samples); p95 > 500*time.Millisecond {
		t.Fatalf("dashboard latency regression: p95=%s threshold=500ms", p95)
	}
}

func BenchmarkCompute(b *testing.B) {
	in := dashboardInput(syntheticDataset(200, 5000))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		kpi.Compute(in)
	}
}

func BenchmarkEvaluateInvoice(b *testing.B) {
	issued := benchNow
	due := benchNow.AddDate(0, 0, 30)
	invoice := billing.Invoice{
		ID: uuid.New(), Reference: "FAC-00001", Object: "Entretien", PaymentMethod: billing.PaymentMethodBankTransfer,
		DateIssued: &issued, DateDue: &due, TotalGross: decimal.NewFromInt(240),
	}
	in := conformity.Input{
		Kind:      conformity.KindInvoice,
		Invoice:   &invoice,
		Client:    &billing.Client{Type: billing.ClientTypeIndividual, FirstName: "Claire", LastName: "Dubois", Street: "1 rue", City: "Lyon", PostalCode: "69000"},
		Company:   &billing.Company{Name: "Paysages Martin", TaxRegistrationID: "FR40", IBAN: "FR76"},
		HasIBAN:   true,
		LineCount: 3,
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		conformity.Evaluate(in)
	}
}

func BenchmarkBuildTimeline(b *testing.B) {
	w := reminders.Workflow{ID: uuid.New(), IsActive: true, CurrentLevel: reminders.LevelNotice2}
	messages := make([]reminders.Message, 0, 30)
	for i := 0; i < 30; i++ {
		messages = append(messages, reminders.Message{
			ID: uuid.New(), WorkflowID: w.ID,
			Level:  reminders.Levels[i%len(reminders.Levels)],
			Status: reminders.MessageSent,
		})
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reminders.BuildTimeline(w, messages)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
