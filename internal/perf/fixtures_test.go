package perf

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/terracore/terracore-pro/internal/billing"
)

var benchNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

type dataset struct {
	companyID uuid.UUID
	invoices  []billing.Invoice
	quotes    []billing.Quote
	clients   []billing.Client
}

// syntheticDataset spreads invoices and quotes evenly over the year preceding
// benchNow, round-robin across the clients.
func syntheticDataset(clients, invoices int) dataset {
	ds := dataset{companyID: uuid.New()}
	for i := 0; i < clients; i++ {
		c := billing.Client{ID: uuid.New(), CompanyID: ds.companyID, Type: billing.ClientTypeIndividual,
			FirstName: "Client", LastName: fmt.Sprintf("%04d", i)}
		if i%3 == 0 {
			c.Type = billing.ClientTypeProfessional
			c.CompanyName = fmt.Sprintf("SARL %04d", i)
		}
		ds.clients = append(ds.clients, c)
	}
	statuses := []billing.InvoiceStatus{billing.InvoiceStatusPaid, billing.InvoiceStatusSent, billing.InvoiceStatusPartiallyPaid, billing.InvoiceStatusDraft}
	quoteStatuses := []billing.QuoteStatus{billing.QuoteStatusAccepted, billing.QuoteStatusSent, billing.QuoteStatusRefused}
	for i := 0; i < invoices; i++ {
		issued := benchNow.AddDate(0, 0, -(i % 365))
		due := issued.AddDate(0, 0, 30)
		amount := decimal.NewFromInt(int64(100 + i%900))
		ds.invoices = append(ds.invoices, billing.Invoice{
			ID: uuid.New(), CompanyID: ds.companyID, ClientID: ds.clients[i%clients].ID,
			Status: statuses[i%len(statuses)], Reference: fmt.Sprintf("FAC-%05d", i),
			DateIssued: &issued, DateDue: &due,
			TotalNet: amount, TotalGross: amount.Mul(decimal.RequireFromString("1.2")),
		})
		if i%2 == 0 {
			ds.quotes = append(ds.quotes, billing.Quote{
				ID: uuid.New(), CompanyID: ds.companyID, ClientID: ds.clients[i%clients].ID,
				Status: quoteStatuses[i%len(quoteStatuses)], DateIssued: &issued, TotalGross: amount,
			})
		}
	}
	return ds
}

type memSource struct {
	data map[uuid.UUID]dataset
}

func (m memSource) ListInvoices(_ context.Context, companyID uuid.UUID) ([]billing.Invoice, error) {
	return m.data[companyID].invoices, nil
}

func (m memSource) ListQuotes(_ context.Context, companyID uuid.UUID, from, to time.Time) ([]billing.Quote, error) {
	out := make([]billing.Quote, 0)
	for _, q := range m.data[companyID].quotes {
		if q.DateIssued == nil {
			continue
		}
		if (!from.IsZero() && q.DateIssued.Before(from)) || (!to.IsZero() && !q.DateIssued.Before(to)) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (m memSource) ListClients(_ context.Context, companyID uuid.UUID) ([]billing.Client, error) {
	return m.data[companyID].clients, nil
}

func (m memSource) CountActiveReminders(context.Context, uuid.UUID) (int, error) { return 3, nil }

func (m memSource) CountPendingAIProposals(context.Context, uuid.UUID) (int, error) { return 1, nil }

func (m memSource) ListCompanyIDs(context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}
