// Package aggregate provides the reducers shared by every KPI computation.
// Each reducer resolves degenerate input (no rows, zero denominators) to a
// neutral zero instead of an error.
package aggregate

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Monthly is a calendar-year series; index 0 holds January.
type Monthly [12]decimal.Decimal

// Month returns the value stored for the given calendar month.
func (m Monthly) Month(month time.Month) decimal.Decimal {
	if month < time.January || month > time.December {
		return decimal.Zero
	}
	return m[month-1]
}

// Total sums the twelve entries.
func (m Monthly) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}

// SumByMonth buckets valueOf(row) by the calendar month of dateOf(row).
// Rows without a date are skipped. Callers filter rows to the wanted year
// beforehand.
func SumByMonth[T any](rows []T, dateOf func(T) *time.Time, valueOf func(T) decimal.Decimal) Monthly {
	var series Monthly
	for i := range series {
		series[i] = decimal.Zero
	}
	for _, row := range rows {
		at := dateOf(row)
		if at == nil || at.IsZero() {
			continue
		}
		idx := at.Month() - 1
		series[idx] = series[idx].Add(valueOf(row))
	}
	return series
}

// Ratio returns numerator/denominator as a rounded percentage, or 0 when the
// denominator is 0.
func Ratio(numerator, denominator int) int {
	if denominator == 0 {
		return 0
	}
	return int(math.Round(float64(numerator) / float64(denominator) * 100))
}

// DaysBetween counts calendar days from a to b; negative when b precedes a.
// Time of day is ignored.
func DaysBetween(a, b time.Time) int {
	return int(calendarDay(b).Sub(calendarDay(a)).Hours() / 24)
}

// Average returns the arithmetic mean, or 0 for an empty slice.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SumDecimal adds valueOf(row) over rows.
func SumDecimal[T any](rows []T, valueOf func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(valueOf(row))
	}
	return total
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
