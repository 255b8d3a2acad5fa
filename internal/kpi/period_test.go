package kpi

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terracore/terracore-pro/internal/billing"
)

func TestResolvePeriodPresets(t *testing.T) {
	now := time.Date(2024, time.August, 14, 16, 30, 0, 0, time.UTC)

	cases := []struct {
		preset Preset
		start  time.Time
		end    time.Time
	}{
		{PresetThisMonth, *date(2024, time.August, 1), *date(2024, time.September, 1)},
		{"", *date(2024, time.August, 1), *date(2024, time.September, 1)},
		{PresetThisQuarter, *date(2024, time.July, 1), *date(2024, time.October, 1)},
		{PresetThisYear, *date(2024, time.January, 1), *date(2025, time.January, 1)},
	}
	for _, tc := range cases {
		t.Run(string(tc.preset), func(t *testing.T) {
			p, err := ResolvePeriod(tc.preset, now, nil, nil)
			require.NoError(t, err)
			assert.True(t, tc.start.Equal(p.Start), "start %s", p.Start)
			assert.True(t, tc.end.Equal(p.End), "end %s", p.End)
		})
	}
}

func TestResolvePeriodCustomIsInclusive(t *testing.T) {
	now := time.Date(2024, time.August, 14, 0, 0, 0, 0, time.UTC)
	p, err := ResolvePeriod(PresetCustom, now, date(2024, time.February, 10), date(2024, time.February, 20))
	require.NoError(t, err)
	assert.True(t, p.Contains(date(2024, time.February, 20)))
	assert.False(t, p.Contains(date(2024, time.February, 21)))
	assert.True(t, p.Contains(date(2024, time.February, 10)))
	assert.False(t, p.Contains(nil))
}

func TestResolvePeriodRejectsBadInput(t *testing.T) {
	now := time.Now()
	_, err := ResolvePeriod(PresetCustom, now, nil, date(2024, time.March, 1))
	assert.True(t, errors.Is(err, ErrInvalidPeriod))

	_, err = ResolvePeriod(PresetCustom, now, date(2024, time.March, 2), date(2024, time.March, 1))
	assert.True(t, errors.Is(err, ErrInvalidPeriod))

	_, err = ResolvePeriod("last_decade", now, nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidPeriod))
}

func TestResolvePeriodWestOfUTCKeepsCalendarBounds(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, ny)
	p, err := ResolvePeriod(PresetThisMonth, now, nil, nil)
	require.NoError(t, err)
	assert.True(t, p.Contains(date(2024, time.March, 1)))
	assert.True(t, p.Contains(date(2024, time.March, 31)))
	assert.False(t, p.Contains(date(2024, time.April, 1)))
	assert.False(t, p.Contains(date(2024, time.February, 29)))

	quotes := []billing.Quote{{Status: billing.QuoteStatusAccepted, DateIssued: date(2024, time.March, 1)}}
	assert.Equal(t, Conversion{Total: 1, Accepted: 1, Rate: 100}, QuoteConversion(quotes, p))

	// 22:00 on March 31 in New York is already April in UTC.
	lateEvening := time.Date(2024, time.March, 31, 22, 0, 0, 0, ny)
	p, err = ResolvePeriod(PresetThisMonth, lateEvening, nil, nil)
	require.NoError(t, err)
	assert.True(t, date(2024, time.March, 1).Equal(p.Start))
	assert.True(t, date(2024, time.April, 1).Equal(p.End))
}

func TestResolvePeriodCustomUsesCalendarDates(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	from := time.Date(2024, time.June, 1, 0, 0, 0, 0, ny)
	to := time.Date(2024, time.June, 30, 0, 0, 0, 0, ny)
	p, err := ResolvePeriod(PresetCustom, time.Now(), &from, &to)
	require.NoError(t, err)
	assert.True(t, date(2024, time.June, 1).Equal(p.Start))
	assert.True(t, date(2024, time.July, 1).Equal(p.End))
	assert.True(t, p.Contains(&from))
}
