// Package export renders KPI dashboards as downloadable files.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/terracore/terracore-pro/internal/kpi"
)

// Formatter prints amounts for a locale.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter builds a formatter for the given language tag; French is used
// when the tag is undefined.
func NewFormatter(tag language.Tag) Formatter {
	if tag == language.Und {
		tag = language.French
	}
	return Formatter{printer: message.NewPrinter(tag)}
}

// Amount renders a decimal with two fraction digits and locale grouping.
func (f Formatter) Amount(v decimal.Decimal) string {
	value, _ := v.Round(2).Float64()
	return f.printer.Sprintf("%.2f", value)
}

// WriteDashboardCSV serialises a dashboard to CSV sections separated by a
// blank line.
func WriteDashboardCSV(w io.Writer, d kpi.Dashboard, f Formatter) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	sections := [][][]string{
		summaryRecords(d, f),
		monthlyRecords(d, f),
		topClientRecords(d, f),
		lateRecords(d, f),
	}
	for i, section := range sections {
		if i > 0 {
			if err := writer.Write(nil); err != nil {
				return err
			}
		}
		if err := writer.WriteAll(section); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func summaryRecords(d kpi.Dashboard, f Formatter) [][]string {
	margin := "n/a"
	if d.Margin.Available && d.Margin.Percent != nil {
		margin = d.Margin.Percent.StringFixed(1)
	}
	return [][]string{
		{"Metric", "Value"},
		{"Period start", d.Period.Start.Format(time.DateOnly)},
		{"Period end", d.Period.End.AddDate(0, 0, -1).Format(time.DateOnly)},
		{"Revenue " + strconv.Itoa(d.Year), f.Amount(d.MonthlyRevenue.Total())},
		{"Quotes issued", strconv.Itoa(d.Conversion.Total)},
		{"Quotes accepted", strconv.Itoa(d.Conversion.Accepted)},
		{"Conversion rate (%)", strconv.Itoa(d.Conversion.Rate)},
		{"Average DSO (days)", strconv.Itoa(d.AverageDSO)},
		{"Individual revenue", f.Amount(d.RevenueByClientType.Individual)},
		{"Professional revenue", f.Amount(d.RevenueByClientType.Professional)},
		{"Late invoices", strconv.Itoa(d.Late.Count)},
		{"Late amount", f.Amount(d.Late.Amount)},
		{"Receivables not yet due", f.Amount(d.Aging.Current)},
		{"Receivables 1-30 days", f.Amount(d.Aging.Days1To30)},
		{"Receivables 31-60 days", f.Amount(d.Aging.Days31To60)},
		{"Receivables 61-90 days", f.Amount(d.Aging.Days61To90)},
		{"Receivables over 90 days", f.Amount(d.Aging.Over90)},
		{"Active reminders", strconv.Itoa(d.ActiveReminders)},
		{"Pending AI proposals", strconv.Itoa(d.PendingAIProposals)},
		{"Average margin (%)", margin},
	}
}

func monthlyRecords(d kpi.Dashboard, f Formatter) [][]string {
	records := [][]string{{"Month", "Revenue"}}
	for i, v := range d.MonthlyRevenue {
		month := time.Date(d.Year, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
		records = append(records, []string{month.Format("2006-01"), f.Amount(v)})
	}
	return records
}

func topClientRecords(d kpi.Dashboard, f Formatter) [][]string {
	records := [][]string{{"Rank", "Client", "Amount"}}
	for i, c := range d.TopClients {
		records = append(records, []string{strconv.Itoa(i + 1), c.Name, f.Amount(c.Amount)})
	}
	return records
}

func lateRecords(d kpi.Dashboard, f Formatter) [][]string {
	records := [][]string{{"Reference", "Due date", "Outstanding"}}
	for _, inv := range d.Late.Invoices {
		due := ""
		if inv.DateDue != nil {
			due = inv.DateDue.Format(time.DateOnly)
		}
		records = append(records, []string{inv.Reference, due, f.Amount(inv.Outstanding())})
	}
	return records
}
