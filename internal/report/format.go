package report

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"stockreport/internal/aggregate"
	"stockreport/internal/provider"
	"stockreport/internal/score"
)

// NA is shown for any value the provider did not supply.
const NA = "N/A"

var hundred = decimal.NewFromInt(100)

// Row is one display-ready line of the report.
type Row struct {
	Ticker           string               `json:"ticker"`
	Name             string               `json:"name"`
	Market           provider.Market      `json:"market"`
	PERatio          string               `json:"pe_ratio"`
	PEGRatio         string               `json:"peg_ratio"`
	PriceToSales     string               `json:"price_to_sales"`
	DividendYield    string               `json:"dividend_yield"`
	OperatingMargin  string               `json:"operating_margin"`
	DebtToEquity     string               `json:"debt_to_equity"`
	Price            string               `json:"price"`
	Volume           string               `json:"volume"`
	LatestTradingDay string               `json:"latest_trading_day"`
	Recommendation   score.Recommendation `json:"recommendation"`
	Source           string               `json:"source,omitempty"`
	Cached           bool                 `json:"cached"`
}

// Formatter renders Quote fields for display.
type Formatter struct {
	p *message.Printer
}

// NewFormatter groups counts per the given locale.
func NewFormatter(tag language.Tag) Formatter {
	return Formatter{p: message.NewPrinter(tag)}
}

// Ratio renders a plain ratio with two decimals.
func (Formatter) Ratio(d *decimal.Decimal) string {
	if d == nil {
		return NA
	}
	return d.StringFixed(2)
}

// Percent renders a fraction as a percentage with two decimals.
func (Formatter) Percent(d *decimal.Decimal) string {
	if d == nil {
		return NA
	}
	return d.Mul(hundred).StringFixed(2) + "%"
}

// Count renders an integer with locale digit grouping.
func (f Formatter) Count(v *int64) string {
	if v == nil {
		return NA
	}
	if f.p == nil {
		f.p = message.NewPrinter(language.English)
	}
	return f.p.Sprintf("%d", *v)
}

func text(s string) string {
	if s == "" {
		return NA
	}
	return s
}

// Row builds the display row for sym. q may be nil.
func (f Formatter) Row(sym provider.Symbol, q *provider.Quote, cached bool) Row {
	r := Row{
		Ticker:         sym.Ticker,
		Name:           sym.Name,
		Market:         sym.Market,
		Recommendation: score.Score(q),
		Cached:         cached,
	}
	if q == nil {
		q = &provider.Quote{}
	} else {
		r.Source = q.Source
	}
	if r.Name == "" {
		r.Name = q.Name
	}
	r.PERatio = f.Ratio(q.PERatio)
	r.PEGRatio = f.Ratio(q.PEGRatio)
	r.PriceToSales = f.Ratio(q.PriceToSales)
	r.DividendYield = f.Percent(q.DividendYield)
	r.OperatingMargin = f.Percent(q.OperatingMargin)
	r.DebtToEquity = f.Ratio(q.DebtToEquity)
	r.Price = f.Ratio(q.Price)
	r.Volume = f.Count(q.Volume)
	r.LatestTradingDay = text(q.LatestTradingDay)
	return r
}

func summarize(rows []Row) aggregate.Summary {
	items := make([]aggregate.Item, len(rows))
	for i, r := range rows {
		items[i] = aggregate.Item{
			Market:         r.Market,
			Recommendation: r.Recommendation,
			Source:         r.Source,
			Cached:         r.Cached,
		}
	}
	return aggregate.Tally(items)
}
