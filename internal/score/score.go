// Package score turns a Quote into a Buy/Hold/Sell recommendation.
package score

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"stockreport/internal/provider"
)

type Recommendation int

const (
	DataUnavailable Recommendation = iota
	InsufficientData
	Sell
	Hold
	Buy
)

var names = map[Recommendation]string{
	DataUnavailable:  "Data Unavailable",
	InsufficientData: "Insufficient Data",
	Sell:             "Sell",
	Hold:             "Hold",
	Buy:              "Buy",
}

func (r Recommendation) String() string {
	if s, ok := names[r]; ok {
		return s
	}
	return "Unknown"
}

func (r Recommendation) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// All lists every recommendation, strongest first.
func All() []Recommendation {
	return []Recommendation{Buy, Hold, Sell, InsufficientData, DataUnavailable}
}

var (
	one     = decimal.NewFromInt(1)
	five    = decimal.NewFromInt(5)
	two     = decimal.NewFromInt(2)
	fifteen = decimal.NewFromInt(15)
	hundred = decimal.NewFromInt(100)
)

type check struct {
	value *decimal.Decimal
	pass  func(decimal.Decimal) bool
}

// Score evaluates up to four value criteria, skipping any whose field is
// absent. A nil quote is DataUnavailable; a quote with none of the fields is
// InsufficientData. Comparisons are strict.
func Score(q *provider.Quote) Recommendation {
	if q == nil {
		return DataUnavailable
	}

	checks := []check{
		{q.PEGRatio, func(v decimal.Decimal) bool { return v.LessThan(one) }},
		{q.PriceToSales, func(v decimal.Decimal) bool { return v.LessThan(five) }},
		{q.DividendYield, func(v decimal.Decimal) bool { return v.Mul(hundred).GreaterThan(two) }},
		{q.OperatingMargin, func(v decimal.Decimal) bool { return v.Mul(hundred).GreaterThan(fifteen) }},
	}

	var passed, total int
	for _, c := range checks {
		if c.value == nil {
			continue
		}
		total++
		if c.pass(*c.value) {
			passed++
		}
	}

	switch {
	case total == 0:
		return InsufficientData
	case 4*passed >= 3*total:
		return Buy
	case 2*passed >= total:
		return Hold
	default:
		return Sell
	}
}
