package reporting

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// PeriodRequest carries the series parameters shared by the period aggregators.
type PeriodRequest struct {
	Type   PeriodType  `json:"periodType"`
	Count  int         `json:"count"`
	Filter *DateFilter `json:"filter,omitempty"`
}

// percent returns numerator/denominator*100, or 0 when the ratio is undefined.
func percent(numerator, denominator float64) float64 {
	return ratio(numerator*100, denominator)
}

// ratio divides with the zero-denominator policy applied: never NaN or Inf.
func ratio(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	r := numerator / denominator
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// amount accumulates money in decimal so long sums do not drift.
type amount struct {
	sum decimal.Decimal
}

func (a *amount) add(v float64) {
	a.sum = a.sum.Add(decimal.NewFromFloat(v))
}

func (a amount) float() float64 {
	return a.sum.InexactFloat64()
}

// daysBetween counts calendar days from a to b, ignoring clock and zone.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(math.Round(to.Sub(from).Hours() / 24))
}
