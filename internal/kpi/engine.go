// Package kpi aggregates invoices, quotes and clients into the dashboard
// indicators. The functions in this file are pure; Service adds data loading
// and caching around them.
package kpi

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/terracore/terracore-pro/internal/aggregate"
	"github.com/terracore/terracore-pro/internal/billing"
)

// DefaultTopClients is used when no positive top-N is requested.
const DefaultTopClients = 5

// Input carries the already-fetched rows for one dashboard computation.
type Input struct {
	CompanyID          uuid.UUID
	Period             Period
	Year               int
	Now                time.Time
	TopN               int
	Invoices           []billing.Invoice
	Quotes             []billing.Quote
	Clients            []billing.Client
	ActiveReminders    int
	PendingAIProposals int
}

// Dashboard is the full KPI result for a company and period.
type Dashboard struct {
	CompanyID           uuid.UUID         `json:"company_id"`
	Period              Period            `json:"period"`
	Year                int               `json:"year"`
	GeneratedAt         time.Time         `json:"generated_at"`
	MonthlyRevenue      aggregate.Monthly `json:"monthly_revenue"`
	Conversion          Conversion        `json:"quote_conversion"`
	AverageDSO          int               `json:"average_dso"`
	TopClients          []ClientRevenue   `json:"top_clients"`
	RevenueByClientType ClientTypeRevenue `json:"revenue_by_client_type"`
	Late                Late              `json:"late_invoices"`
	Aging               Aging             `json:"receivables_aging"`
	ActiveReminders     int               `json:"active_reminders"`
	PendingAIProposals  int               `json:"pending_ai_proposals"`
	Margin              Margin            `json:"margin"`
	MarginByMonth       [12]Margin        `json:"margin_by_month"`
}

// Conversion is the quote-to-acceptance rate.
type Conversion struct {
	Total    int `json:"total"`
	Accepted int `json:"accepted"`
	Rate     int `json:"rate"`
}

// ClientRevenue is one entry of the top-clients ranking.
type ClientRevenue struct {
	ClientID uuid.UUID       `json:"client_id"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
}

// ClientTypeRevenue splits billed amounts by client type. Invoices whose
// client is unknown land in Unclassified.
type ClientTypeRevenue struct {
	Individual   decimal.Decimal `json:"individual"`
	Professional decimal.Decimal `json:"professional"`
	Unclassified decimal.Decimal `json:"unclassified"`
}

// Aging splits open receivables by days past due. Current holds amounts not
// yet due.
type Aging struct {
	Current    decimal.Decimal `json:"current"`
	Days1To30  decimal.Decimal `json:"days_1_30"`
	Days31To60 decimal.Decimal `json:"days_31_60"`
	Days61To90 decimal.Decimal `json:"days_61_90"`
	Over90     decimal.Decimal `json:"over_90"`
}

// Total sums every bucket.
func (a Aging) Total() decimal.Decimal {
	return a.Current.Add(a.Days1To30).Add(a.Days31To60).Add(a.Days61To90).Add(a.Over90)
}

// Late summarises invoices past their due date.
type Late struct {
	Count    int               `json:"count"`
	Amount   decimal.Decimal   `json:"amount"`
	Invoices []billing.Invoice `json:"invoices"`
}

// Compute builds the dashboard from in-memory rows. Rows belonging to another
// company are ignored when a company id is set.
func Compute(in Input) Dashboard {
	invoices := scopeInvoices(in.Invoices, in.CompanyID)
	quotes := scopeQuotes(in.Quotes, in.CompanyID)

	inPeriod := make([]billing.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if in.Period.Contains(inv.DateIssued) {
			inPeriod = append(inPeriod, inv)
		}
	}

	return Dashboard{
		CompanyID:           in.CompanyID,
		Period:              in.Period,
		Year:                in.Year,
		GeneratedAt:         in.Now,
		MonthlyRevenue:      MonthlyRevenue(invoices, in.Year),
		Conversion:          QuoteConversion(quotes, in.Period),
		AverageDSO:          AverageDSO(inPeriod),
		TopClients:          TopClients(inPeriod, in.Clients, in.TopN),
		RevenueByClientType: RevenueByClientType(inPeriod, in.Clients),
		Late:                LateInvoices(invoices, in.Now),
		Aging:               ReceivablesAging(invoices, in.Now),
		ActiveReminders:     in.ActiveReminders,
		PendingAIProposals:  in.PendingAIProposals,
		Margin:              MarginUnavailable,
		MarginByMonth:       MarginByMonth(),
	}
}

// MonthlyRevenue sums gross totals of paid and partially paid invoices issued
// in year, per calendar month.
func MonthlyRevenue(invoices []billing.Invoice, year int) aggregate.Monthly {
	qualifying := make([]billing.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if !countsAsRevenue(inv.Status) || inv.DateIssued == nil {
			continue
		}
		if inv.DateIssued.Year() != year {
			continue
		}
		qualifying = append(qualifying, inv)
	}
	return aggregate.SumByMonth(qualifying,
		func(inv billing.Invoice) *time.Time { return inv.DateIssued },
		func(inv billing.Invoice) decimal.Decimal { return inv.TotalGross },
	)
}

// QuoteConversion rates accepted quotes among those issued in the period.
func QuoteConversion(quotes []billing.Quote, period Period) Conversion {
	var conv Conversion
	for _, q := range quotes {
		if !period.Contains(q.DateIssued) {
			continue
		}
		conv.Total++
		if q.Status == billing.QuoteStatusAccepted {
			conv.Accepted++
		}
	}
	conv.Rate = aggregate.Ratio(conv.Accepted, conv.Total)
	return conv
}

// AverageDSO averages, over paid invoices, the days between issue and due
// date. This is the granted payment window, not the observed time to
// collect: the actual payment date is not part of the computation. Samples
// with a missing date or a negative gap are ignored.
func AverageDSO(invoices []billing.Invoice) int {
	samples := make([]float64, 0, len(invoices))
	for _, inv := range invoices {
		if inv.Status != billing.InvoiceStatusPaid || inv.DateIssued == nil || inv.DateDue == nil {
			continue
		}
		days := aggregate.DaysBetween(*inv.DateIssued, *inv.DateDue)
		if days < 0 {
			continue
		}
		samples = append(samples, float64(days))
	}
	return int(math.Round(aggregate.Average(samples)))
}

// TopClients ranks clients by the summed gross total of their invoices,
// highest first. Every status counts, drafts included, except cancelled.
// Ties keep the order in which clients first appear in invoices.
func TopClients(invoices []billing.Invoice, clients []billing.Client, n int) []ClientRevenue {
	if n <= 0 {
		n = DefaultTopClients
	}
	lookup := clientIndex(clients)
	totals := make(map[uuid.UUID]decimal.Decimal)
	order := make([]uuid.UUID, 0)
	for _, inv := range invoices {
		if inv.Status == billing.InvoiceStatusCancelled {
			continue
		}
		current, seen := totals[inv.ClientID]
		if !seen {
			order = append(order, inv.ClientID)
			current = decimal.Zero
		}
		totals[inv.ClientID] = current.Add(inv.TotalGross)
	}

	ranked := make([]ClientRevenue, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, ClientRevenue{
			ClientID: id,
			Name:     billing.ClientDisplayName(lookup[id]),
			Amount:   totals[id],
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Amount.GreaterThan(ranked[j].Amount)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// RevenueByClientType splits gross totals between individual and
// professional clients. Cancelled invoices are left out, as in TopClients.
func RevenueByClientType(invoices []billing.Invoice, clients []billing.Client) ClientTypeRevenue {
	lookup := clientIndex(clients)
	out := ClientTypeRevenue{Individual: decimal.Zero, Professional: decimal.Zero, Unclassified: decimal.Zero}
	for _, inv := range invoices {
		if inv.Status == billing.InvoiceStatusCancelled {
			continue
		}
		client := lookup[inv.ClientID]
		switch {
		case client == nil:
			out.Unclassified = out.Unclassified.Add(inv.TotalGross)
		case client.Type == billing.ClientTypeProfessional:
			out.Professional = out.Professional.Add(inv.TotalGross)
		case client.Type == billing.ClientTypeIndividual:
			out.Individual = out.Individual.Add(inv.TotalGross)
		default:
			out.Unclassified = out.Unclassified.Add(inv.TotalGross)
		}
	}
	return out
}

// LateInvoices lists sent or overdue invoices whose due date is strictly
// before now.
func LateInvoices(invoices []billing.Invoice, now time.Time) Late {
	late := Late{Amount: decimal.Zero, Invoices: []billing.Invoice{}}
	for _, inv := range invoices {
		if inv.Status != billing.InvoiceStatusOverdue && inv.Status != billing.InvoiceStatusSent {
			continue
		}
		if inv.DateDue == nil || !inv.DateDue.Before(now) {
			continue
		}
		late.Count++
		late.Amount = late.Amount.Add(inv.Outstanding())
		late.Invoices = append(late.Invoices, inv)
	}
	return late
}

func countsAsRevenue(status billing.InvoiceStatus) bool {
	return status == billing.InvoiceStatusPaid || status == billing.InvoiceStatusPartiallyPaid
}

func clientIndex(clients []billing.Client) map[uuid.UUID]*billing.Client {
	lookup := make(map[uuid.UUID]*billing.Client, len(clients))
	for i := range clients {
		lookup[clients[i].ID] = &clients[i]
	}
	return lookup
}

func scopeInvoices(invoices []billing.Invoice, companyID uuid.UUID) []billing.Invoice {
	if companyID == uuid.Nil {
		return invoices
	}
	out := make([]billing.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.CompanyID == companyID {
			out = append(out, inv)
		}
	}
	return out
}

func scopeQuotes(quotes []billing.Quote, companyID uuid.UUID) []billing.Quote {
	if companyID == uuid.Nil {
		return quotes
	}
	out := make([]billing.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.CompanyID == companyID {
			out = append(out, q)
		}
	}
	return out
}

// ReceivablesAging buckets the outstanding amount of sent, partially paid and
// overdue invoices by calendar days between due date and now. Invoices
// without a due date are skipped.
func ReceivablesAging(invoices []billing.Invoice, now time.Time) Aging {
	out := Aging{Current: decimal.Zero, Days1To30: decimal.Zero, Days31To60: decimal.Zero, Days61To90: decimal.Zero, Over90: decimal.Zero}
	for _, inv := range invoices {
		switch inv.Status {
		case billing.InvoiceStatusSent, billing.InvoiceStatusPartiallyPaid, billing.InvoiceStatusOverdue:
		default:
			continue
		}
		if inv.DateDue == nil {
			continue
		}
		owed := inv.Outstanding()
		switch days := aggregate.DaysBetween(*inv.DateDue, now); {
		case days <= 0:
			out.Current = out.Current.Add(owed)
		case days <= 30:
			out.Days1To30 = out.Days1To30.Add(owed)
		case days <= 60:
			out.Days31To60 = out.Days31To60.Add(owed)
		case days <= 90:
			out.Days61To90 = out.Days61To90.Add(owed)
		default:
			out.Over90 = out.Over90.Add(owed)
		}
	}
	return out
}
