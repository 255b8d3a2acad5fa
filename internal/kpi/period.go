package kpi

import (
	"errors"
	"fmt"
	"time"
)

// Preset names a reporting window relative to the current date.
type Preset string

const (
	PresetThisMonth   Preset = "this_month"
	PresetThisQuarter Preset = "this_quarter"
	PresetThisYear    Preset = "this_year"
	PresetCustom      Preset = "custom"
)

// ErrInvalidPeriod reports an unknown preset or an unusable custom range.
var ErrInvalidPeriod = errors.New("kpi: invalid period")

// Period is the half-open interval [Start, End). Both bounds are UTC
// midnights, matching how stored document dates are read back.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether the calendar date of t falls inside the period.
// A nil time never does.
func (p Period) Contains(t *time.Time) bool {
	if t == nil || t.IsZero() {
		return false
	}
	day := calendarDate(*t)
	return !day.Before(p.Start) && day.Before(p.End)
}

// ResolvePeriod turns a preset into concrete bounds. The current month,
// quarter or year is taken from now's calendar date in its own location. For
// PresetCustom, from and to are inclusive calendar dates.
func ResolvePeriod(preset Preset, now time.Time, from, to *time.Time) (Period, error) {
	loc := time.UTC
	year, month, _ := now.Date()
	switch preset {
	case "", PresetThisMonth:
		start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		return Period{Start: start, End: start.AddDate(0, 1, 0)}, nil
	case PresetThisQuarter:
		first := time.Month((int(month)-1)/3*3 + 1)
		start := time.Date(year, first, 1, 0, 0, 0, 0, loc)
		return Period{Start: start, End: start.AddDate(0, 3, 0)}, nil
	case PresetThisYear:
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		return Period{Start: start, End: start.AddDate(1, 0, 0)}, nil
	case PresetCustom:
		if from == nil || to == nil {
			return Period{}, fmt.Errorf("%w: custom range needs both bounds", ErrInvalidPeriod)
		}
		start := calendarDate(*from)
		end := calendarDate(*to).AddDate(0, 0, 1)
		if !start.Before(end) {
			return Period{}, fmt.Errorf("%w: range ends before it starts", ErrInvalidPeriod)
		}
		return Period{Start: start, End: end}, nil
	default:
		return Period{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidPeriod, preset)
	}
}

// calendarDate keeps the date t shows in its own location, as UTC midnight.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
