package kpi

import "github.com/shopspring/decimal"

// Margin is an optional indicator. Quotes no longer carry a cost basis, so
// margins are reported as unavailable rather than zero.
type Margin struct {
	Available bool             `json:"available"`
	Percent   *decimal.Decimal `json:"percent,omitempty"`
}

// MarginUnavailable is returned until a cost basis is stored again.
var MarginUnavailable = Margin{Available: false}

// MarginByMonth returns the per-month margin series, all unavailable.
func MarginByMonth() [12]Margin {
	var series [12]Margin
	for i := range series {
		series[i] = MarginUnavailable
	}
	return series
}
