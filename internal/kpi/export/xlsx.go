package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/terracore/terracore-pro/internal/kpi"
)

const (
	sheetSummary = "Summary"
	sheetMonthly = "Revenue"
	sheetClients = "Top clients"
	sheetLate    = "Late invoices"
)

// WriteDashboardXLSX returns the dashboard as an XLSX workbook, one sheet per
// section. Amounts are written as numbers so spreadsheets can sum them.
func WriteDashboardXLSX(d kpi.Dashboard, f Formatter) ([]byte, error) {
	book := excelize.NewFile()
	defer func() { _ = book.Close() }()

	if err := book.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeRows(book, sheetSummary, stringRows(summaryRecords(d, f))); err != nil {
		return nil, err
	}

	monthly := [][]any{{"Month", "Revenue"}}
	for i, v := range d.MonthlyRevenue {
		month := time.Date(d.Year, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
		value, _ := v.Round(2).Float64()
		monthly = append(monthly, []any{month.Format("2006-01"), value})
	}
	if err := addSheet(book, sheetMonthly, monthly); err != nil {
		return nil, err
	}

	clients := [][]any{{"Rank", "Client", "Amount"}}
	for i, c := range d.TopClients {
		value, _ := c.Amount.Round(2).Float64()
		clients = append(clients, []any{i + 1, c.Name, value})
	}
	if err := addSheet(book, sheetClients, clients); err != nil {
		return nil, err
	}

	late := [][]any{{"Reference", "Due date", "Outstanding"}}
	for _, inv := range d.Late.Invoices {
		due := ""
		if inv.DateDue != nil {
			due = inv.DateDue.Format(time.DateOnly)
		}
		value, _ := inv.Outstanding().Round(2).Float64()
		late = append(late, []any{inv.Reference, due, value})
	}
	if err := addSheet(book, sheetLate, late); err != nil {
		return nil, err
	}

	idx, err := book.GetSheetIndex(sheetSummary)
	if err != nil {
		return nil, err
	}
	book.SetActiveSheet(idx)

	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func addSheet(book *excelize.File, name string, rows [][]any) error {
	if _, err := book.NewSheet(name); err != nil {
		return fmt.Errorf("new sheet %s: %w", name, err)
	}
	return writeRows(book, name, rows)
}

func writeRows(book *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := book.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

func stringRows(records [][]string) [][]any {
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		rows = append(rows, row)
	}
	return rows
}
