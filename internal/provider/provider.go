package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Market classifies a listing. Secondary listings are recognized by a ticker
// suffix (".TRT" by default) and are served by a different endpoint shape.
type Market string

const (
	Primary   Market = "primary"
	Secondary Market = "secondary"
)

// DefaultSecondarySuffix marks a non-primary-market listing.
const DefaultSecondarySuffix = ".TRT"

// Classify returns the market for ticker given the secondary suffixes.
// With no suffixes, DefaultSecondarySuffix applies.
func Classify(ticker string, secondarySuffixes ...string) Market {
	if len(secondarySuffixes) == 0 {
		secondarySuffixes = []string{DefaultSecondarySuffix}
	}
	upper := strings.ToUpper(strings.TrimSpace(ticker))
	for _, s := range secondarySuffixes {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" && strings.HasSuffix(upper, s) {
			return Secondary
		}
	}
	return Primary
}

// Symbol identifies one equity from the static symbol list.
type Symbol struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Market Market `json:"market"`
}

// NewSymbol builds a Symbol, deriving its market from the ticker suffix.
func NewSymbol(ticker, name string, secondarySuffixes ...string) Symbol {
	ticker = strings.TrimSpace(ticker)
	return Symbol{Ticker: ticker, Name: name, Market: Classify(ticker, secondarySuffixes...)}
}

// Quote is the normalized fundamentals snapshot returned by all providers.
// Every field is optional; nil means the provider did not supply a usable
// number. Ratios and yields are kept as decimals to avoid float rounding of
// the provider's string values.
type Quote struct {
	Symbol           string           `json:"symbol"`
	Name             string           `json:"name,omitempty"`
	Source           string           `json:"source"`
	PERatio          *decimal.Decimal `json:"pe_ratio,omitempty"`
	PEGRatio         *decimal.Decimal `json:"peg_ratio,omitempty"`
	PriceToSales     *decimal.Decimal `json:"price_to_sales,omitempty"`
	DividendYield    *decimal.Decimal `json:"dividend_yield,omitempty"`    // fraction
	OperatingMargin  *decimal.Decimal `json:"operating_margin,omitempty"`  // fraction
	DebtToEquity     *decimal.Decimal `json:"debt_to_equity,omitempty"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	Volume           *int64           `json:"volume,omitempty"`
	LatestTradingDay string           `json:"latest_trading_day,omitempty"`
}

// Empty reports whether q carries neither an identity nor any data. A quote
// naming its symbol with every figure absent is not empty: it scores as
// insufficient data and is cached like any other.
func (q *Quote) Empty() bool {
	if q == nil {
		return true
	}
	return q.Symbol == "" && q.Name == "" &&
		q.PERatio == nil && q.PEGRatio == nil && q.PriceToSales == nil &&
		q.DividendYield == nil && q.OperatingMargin == nil && q.DebtToEquity == nil &&
		q.Price == nil && q.Volume == nil && q.LatestTradingDay == ""
}

// PricePoint is one daily close used for charting.
type PricePoint struct {
	Date  string          `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// Provider produces a Quote for a symbol.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, sym Symbol) (*Quote, error)
}

// HistoryProvider produces a trailing series of daily closes, oldest first.
type HistoryProvider interface {
	Name() string
	History(ctx context.Context, sym Symbol, days int) ([]PricePoint, error)
}

var (
	// ErrMissingCredential is returned before any network call when a
	// provider requires an API key that is not configured.
	ErrMissingCredential = errors.New("missing api credential")
	// ErrRateLimited is returned when the provider signals throttling,
	// either by status code or by a marker field in the body.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmptyResponse covers empty or unusable payloads.
	ErrEmptyResponse = errors.New("empty response")
	// ErrUnexpectedStatus covers non-2xx responses other than throttling.
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

// ParseNumber converts a provider string into a decimal. Blank strings,
// "None", "-" and anything non-numeric are reported as absent.
func ParseNumber(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "none", "-", "nan", "n/a", "null", "inf", "+inf", "-inf":
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// ParseInt converts a provider string into an integer count.
func ParseInt(s string) *int64 {
	d := ParseNumber(s)
	if d == nil {
		return nil
	}
	v := d.IntPart()
	return &v
}
