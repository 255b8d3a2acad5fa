package kpi

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terracore/terracore-pro/internal/billing"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func invoice(status billing.InvoiceStatus, issued *time.Time, gross string) billing.Invoice {
	return billing.Invoice{ID: uuid.New(), Status: status, DateIssued: issued, TotalGross: amount(gross)}
}

func TestMonthlyRevenueCountsOnlyPaidInvoicesOfTheYear(t *testing.T) {
	invoices := []billing.Invoice{
		invoice(billing.InvoiceStatusPaid, date(2024, time.January, 10), "1000"),
		invoice(billing.InvoiceStatusPartiallyPaid, date(2024, time.January, 20), "250.50"),
		invoice(billing.InvoiceStatusPaid, date(2024, time.June, 1), "300"),
		invoice(billing.InvoiceStatusSent, date(2024, time.June, 2), "999"),
		invoice(billing.InvoiceStatusOverdue, date(2024, time.June, 3), "999"),
		invoice(billing.InvoiceStatusDraft, date(2024, time.June, 4), "999"),
		invoice(billing.InvoiceStatusPaid, date(2023, time.December, 31), "999"),
		invoice(billing.InvoiceStatusPaid, nil, "999"),
	}

	series := MonthlyRevenue(invoices, 2024)
	require.Len(t, series, 12)
	assert.Equal(t, "1250.5", series.Month(time.January).String())
	assert.Equal(t, "300", series.Month(time.June).String())
	assert.True(t, series.Month(time.December).IsZero())
	assert.Equal(t, "1550.5", series.Total().String())

	empty := MonthlyRevenue(nil, 2024)
	require.Len(t, empty, 12)
	assert.True(t, empty.Total().IsZero())
}

func TestQuoteConversion(t *testing.T) {
	period := Period{Start: *date(2024, time.January, 1), End: *date(2024, time.February, 1)}

	assert.Equal(t, Conversion{}, QuoteConversion(nil, period))

	quotes := []billing.Quote{
		{Status: billing.QuoteStatusAccepted, DateIssued: date(2024, time.January, 2)},
		{Status: billing.QuoteStatusAccepted, DateIssued: date(2024, time.January, 3)},
		{Status: billing.QuoteStatusRefused, DateIssued: date(2024, time.January, 4)},
		{Status: billing.QuoteStatusSent, DateIssued: date(2024, time.January, 5)},
		{Status: billing.QuoteStatusAccepted, DateIssued: date(2024, time.February, 1)},
		{Status: billing.QuoteStatusAccepted},
	}
	assert.Equal(t, Conversion{Total: 4, Accepted: 2, Rate: 50}, QuoteConversion(quotes, period))
}

// DSO here is the issue-to-due window. Switching it to real collection time
// must change this test.
func TestAverageDSOMeasuresIssueToDueWindow(t *testing.T) {
	single := []billing.Invoice{{Status: billing.InvoiceStatusPaid, DateIssued: date(2024, time.January, 1), DateDue: date(2024, time.January, 31)}}
	assert.Equal(t, 30, AverageDSO(single))

	mixed := []billing.Invoice{
		{Status: billing.InvoiceStatusPaid, DateIssued: date(2024, time.January, 1), DateDue: date(2024, time.January, 31)},
		{Status: billing.InvoiceStatusPaid, DateIssued: date(2024, time.March, 1), DateDue: date(2024, time.March, 16)},
		// negative gap
		{Status: billing.InvoiceStatusPaid, DateIssued: date(2024, time.May, 10), DateDue: date(2024, time.May, 1)},
		// missing due date
		{Status: billing.InvoiceStatusPaid, DateIssued: date(2024, time.May, 10)},
		// not paid
		{Status: billing.InvoiceStatusSent, DateIssued: date(2024, time.May, 1), DateDue: date(2024, time.August, 1)},
	}
	assert.Equal(t, 23, AverageDSO(mixed))
	assert.Equal(t, 0, AverageDSO(nil))
}

func TestTopClientsRanksWithStableTies(t *testing.T) {
	a := billing.Client{ID: uuid.New(), Type: billing.ClientTypeProfessional, CompanyName: "Paysages Martin"}
	b := billing.Client{ID: uuid.New(), Type: billing.ClientTypeIndividual, FirstName: "Anne", LastName: "Roux"}
	c := billing.Client{ID: uuid.New(), Type: billing.ClientTypeIndividual, FirstName: "Luc", LastName: "Blanc"}
	orphan := uuid.New()

	invoices := []billing.Invoice{
		{ClientID: b.ID, TotalGross: amount("500")},
		{ClientID: a.ID, TotalGross: amount("200")},
		{ClientID: c.ID, TotalGross: amount("500")},
		{ClientID: a.ID, TotalGross: amount("600")},
		{ClientID: orphan, TotalGross: amount("10")},
	}

	ranked := TopClients(invoices, []billing.Client{a, b, c}, 0)
	require.Len(t, ranked, 4)
	assert.Equal(t, "Paysages Martin", ranked[0].Name)
	assert.Equal(t, "800", ranked[0].Amount.String())
	assert.Equal(t, "Anne Roux", ranked[1].Name)
	assert.Equal(t, "Luc Blanc", ranked[2].Name)
	assert.Equal(t, billing.UnknownClientName, ranked[3].Name)

	top2 := TopClients(invoices, []billing.Client{a, b, c}, 2)
	require.Len(t, top2, 2)
	assert.Equal(t, b.ID, top2[1].ClientID)

	assert.Empty(t, TopClients(nil, nil, 5))
}

func TestTopClientsAndClientTypeSkipCancelledInvoices(t *testing.T) {
	pro := billing.Client{ID: uuid.New(), Type: billing.ClientTypeProfessional, CompanyName: "Jardins Leroy"}
	ind := billing.Client{ID: uuid.New(), Type: billing.ClientTypeIndividual, FirstName: "Marc", LastName: "Petit"}
	invoices := []billing.Invoice{
		{ClientID: ind.ID, Status: billing.InvoiceStatusCancelled, TotalGross: amount("9000")},
		{ClientID: pro.ID, Status: billing.InvoiceStatusSent, TotalGross: amount("400")},
		{ClientID: ind.ID, Status: billing.InvoiceStatusDraft, TotalGross: amount("150")},
		{ClientID: pro.ID, Status: billing.InvoiceStatusCancelled, TotalGross: amount("700")},
	}
	clients := []billing.Client{pro, ind}

	ranked := TopClients(invoices, clients, 5)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Jardins Leroy", ranked[0].Name)
	assert.Equal(t, "400", ranked[0].Amount.String())
	assert.Equal(t, "150", ranked[1].Amount.String())

	split := RevenueByClientType(invoices, clients)
	assert.Equal(t, "400", split.Professional.String())
	assert.Equal(t, "150", split.Individual.String())

	onlyCancelled := []billing.Invoice{{ClientID: pro.ID, Status: billing.InvoiceStatusCancelled, TotalGross: amount("50")}}
	assert.Empty(t, TopClients(onlyCancelled, clients, 5))
}

func TestRevenueByClientType(t *testing.T) {
	pro := billing.Client{ID: uuid.New(), Type: billing.ClientTypeProfessional}
	ind := billing.Client{ID: uuid.New(), Type: billing.ClientTypeIndividual}
	invoices := []billing.Invoice{
		{ClientID: pro.ID, TotalGross: amount("1200")},
		{ClientID: ind.ID, TotalGross: amount("300")},
		{ClientID: ind.ID, TotalGross: amount("100.10")},
		{ClientID: uuid.New(), TotalGross: amount("5")},
	}
	split := RevenueByClientType(invoices, []billing.Client{pro, ind})
	assert.Equal(t, "1200", split.Professional.String())
	assert.Equal(t, "400.1", split.Individual.String())
	assert.Equal(t, "5", split.Unclassified.String())
}

func TestReceivablesAging(t *testing.T) {
	now := time.Date(2024, time.June, 30, 9, 0, 0, 0, time.UTC)
	remaining := amount("40")
	invoices := []billing.Invoice{
		{Status: billing.InvoiceStatusSent, DateDue: date(2024, time.June, 30), TotalGross: amount("10")},
		{Status: billing.InvoiceStatusSent, DateDue: date(2024, time.May, 31), TotalGross: amount("20")},
		{Status: billing.InvoiceStatusPartiallyPaid, DateDue: date(2024, time.May, 30), TotalGross: amount("999"), RemainingDue: &remaining},
		{Status: billing.InvoiceStatusOverdue, DateDue: date(2024, time.April, 1), TotalGross: amount("70")},
		{Status: billing.InvoiceStatusOverdue, DateDue: date(2024, time.January, 2), TotalGross: amount("80")},
		{Status: billing.InvoiceStatusPaid, DateDue: date(2024, time.January, 2), TotalGross: amount("999")},
		{Status: billing.InvoiceStatusSent, TotalGross: amount("999")},
	}
	aging := ReceivablesAging(invoices, now)
	assert.Equal(t, "10", aging.Current.String())
	assert.Equal(t, "20", aging.Days1To30.String())
	assert.Equal(t, "40", aging.Days31To60.String())
	assert.Equal(t, "70", aging.Days61To90.String())
	assert.Equal(t, "80", aging.Over90.String())
	assert.Equal(t, "220", aging.Total().String())

	assert.True(t, ReceivablesAging(nil, now).Total().IsZero())
}

func TestLateInvoices(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	remaining := amount("40")
	invoices := []billing.Invoice{
		{Status: billing.InvoiceStatusOverdue, DateDue: date(2024, time.May, 1), TotalGross: amount("100"), RemainingDue: &remaining},
		{Status: billing.InvoiceStatusSent, DateDue: date(2024, time.June, 1), TotalGross: amount("250")},
		{Status: billing.InvoiceStatusSent, DateDue: date(2024, time.July, 1), TotalGross: amount("999")},
		{Status: billing.InvoiceStatusPartiallyPaid, DateDue: date(2024, time.May, 1), TotalGross: amount("999")},
		{Status: billing.InvoiceStatusOverdue, TotalGross: amount("999")},
	}
	late := LateInvoices(invoices, now)
	assert.Equal(t, 2, late.Count)
	assert.Equal(t, "290", late.Amount.String())
	assert.Len(t, late.Invoices, 2)

	empty := LateInvoices(nil, now)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, empty.Amount.IsZero())
	assert.NotNil(t, empty.Invoices)
}

func TestComputeScopesCompanyAndReportsMarginUnavailable(t *testing.T) {
	company := uuid.New()
	client := billing.Client{ID: uuid.New(), Type: billing.ClientTypeIndividual, FirstName: "Eva", LastName: "Noël"}
	now := time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC)
	period, err := ResolvePeriod(PresetThisMonth, now, nil, nil)
	require.NoError(t, err)

	in := Input{
		CompanyID: company,
		Period:    period,
		Year:      2024,
		Now:       now,
		Invoices: []billing.Invoice{
			{CompanyID: company, ClientID: client.ID, Status: billing.InvoiceStatusPaid, DateIssued: date(2024, time.March, 2), DateDue: date(2024, time.March, 12), TotalGross: amount("800")},
			{CompanyID: uuid.New(), ClientID: client.ID, Status: billing.InvoiceStatusPaid, DateIssued: date(2024, time.March, 3), TotalGross: amount("5000")},
		},
		Quotes: []billing.Quote{
			{CompanyID: company, Status: billing.QuoteStatusAccepted, DateIssued: date(2024, time.March, 1)},
		},
		Clients:            []billing.Client{client},
		ActiveReminders:    3,
		PendingAIProposals: 2,
	}
	d := Compute(in)
	assert.Equal(t, "800", d.MonthlyRevenue.Total().String())
	assert.Equal(t, Conversion{Total: 1, Accepted: 1, Rate: 100}, d.Conversion)
	assert.Equal(t, 10, d.AverageDSO)
	require.Len(t, d.TopClients, 1)
	assert.Equal(t, "Eva Noël", d.TopClients[0].Name)
	assert.Equal(t, 3, d.ActiveReminders)
	assert.Equal(t, 2, d.PendingAIProposals)
	assert.False(t, d.Margin.Available)
	assert.Nil(t, d.Margin.Percent)
	for _, m := range d.MarginByMonth {
		assert.False(t, m.Available)
	}
}

func TestComputeAcceptsInconsistentRows(t *testing.T) {
	// gross disagrees with net+vat and a paid invoice still has money due.
	remaining := amount("70")
	in := Input{
		Year: 2024,
		Now:  time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC),
		Period: Period{
			Start: *date(2024, time.January, 1),
			End:   *date(2025, time.January, 1),
		},
		Invoices: []billing.Invoice{{
			Status:       billing.InvoiceStatusPaid,
			DateIssued:   date(2024, time.April, 1),
			DateDue:      date(2024, time.April, 1),
			TotalNet:     amount("100"),
			TotalVAT:     amount("20"),
			TotalGross:   amount("150"),
			RemainingDue: &remaining,
		}},
	}
	first := Compute(in)
	second := Compute(in)
	assert.Equal(t, first, second)
	assert.Equal(t, "150", first.MonthlyRevenue.Month(time.April).String())
	assert.Equal(t, 0, first.AverageDSO)
	assert.Equal(t, 0, first.Late.Count)
}
