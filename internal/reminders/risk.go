package reminders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/terracore/terracore-pro/internal/aggregate"
	"github.com/terracore/terracore-pro/internal/billing"
)

// RiskLabel buckets a risk percentage.
type RiskLabel string

const (
	RiskLow      RiskLabel = "low"
	RiskModerate RiskLabel = "moderate"
	RiskHigh     RiskLabel = "high"
	RiskCritical RiskLabel = "critical"
)

// Risk is a client's collection risk.
type Risk struct {
	Total         int             `json:"total"`
	Overdue       int             `json:"overdue"`
	Percent       int             `json:"percent"`
	Label         RiskLabel       `json:"label"`
	OverdueAmount decimal.Decimal `json:"overdue_amount"`
}

// ClientRisk scores the share of a client's invoices that are overdue.
// Cancelled invoices are left out of both counts.
func ClientRisk(invoices []billing.Invoice, now time.Time) Risk {
	r := Risk{OverdueAmount: decimal.Zero}
	for _, inv := range invoices {
		if inv.Status == billing.InvoiceStatusCancelled {
			continue
		}
		r.Total++
		if IsOverdue(inv, now) {
			r.Overdue++
			r.OverdueAmount = r.OverdueAmount.Add(inv.Outstanding())
		}
	}
	r.Percent = aggregate.Ratio(r.Overdue, r.Total)
	r.Label = labelOf(r.Overdue, r.Total)
	return r
}

// IsOverdue reports whether an invoice counts against the client: flagged
// overdue, or still awaiting payment past its due date.
func IsOverdue(inv billing.Invoice, now time.Time) bool {
	switch inv.Status {
	case billing.InvoiceStatusOverdue:
		return true
	case billing.InvoiceStatusSent, billing.InvoiceStatusPartiallyPaid:
		return inv.DateDue != nil && inv.DateDue.Before(now)
	default:
		return false
	}
}

// LabelFor maps a percentage to its bucket; upper bounds are inclusive.
func LabelFor(percent int) RiskLabel {
	switch {
	case percent <= 0:
		return RiskLow
	case percent <= 25:
		return RiskModerate
	case percent <= 60:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// labelOf buckets the exact fraction so a small non-zero share that rounds to
// 0% is still reported as moderate.
func labelOf(overdue, total int) RiskLabel {
	switch {
	case overdue <= 0 || total <= 0:
		return RiskLow
	case overdue*100 <= 25*total:
		return RiskModerate
	case overdue*100 <= 60*total:
		return RiskHigh
	default:
		return RiskCritical
	}
}
