package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"stockreport/internal/provider"
)

const dateLayout = "2006-01-02"

// DailyBar is one entry of the TIME_SERIES_DAILY payload.
type DailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// DailySeries is the TIME_SERIES_DAILY payload keyed by trading date.
// Map order carries no meaning; use Latest and Dates.
type DailySeries struct {
	Meta   map[string]string   `json:"Meta Data"`
	Series map[string]DailyBar `json:"Time Series (Daily)"`
}

// DailySeries retrieves the compact daily series for symbol.
func (c *APIClient) DailySeries(ctx context.Context, symbol string) (*DailySeries, error) {
	var ds DailySeries
	err := c.get(ctx, url.Values{
		"function": {"TIME_SERIES_DAILY"},
		"symbol":   {symbol},
	}, &ds)
	if err != nil {
		return nil, err
	}
	if len(ds.Dates()) == 0 {
		return nil, fmt.Errorf("alphavantage: daily series %s: %w", symbol, provider.ErrEmptyResponse)
	}
	return &ds, nil
}

// Dates returns the valid trading dates in ascending order. Keys that are
// not YYYY-MM-DD dates are ignored.
func (ds *DailySeries) Dates() []string {
	dates := make([]string, 0, len(ds.Series))
	for k := range ds.Series {
		if _, err := time.Parse(dateLayout, k); err != nil {
			continue
		}
		dates = append(dates, k)
	}
	// ISO dates sort lexicographically in temporal order.
	sort.Strings(dates)
	return dates
}

// Latest returns the most recent trading date and its bar.
func (ds *DailySeries) Latest() (string, DailyBar, bool) {
	dates := ds.Dates()
	if len(dates) == 0 {
		return "", DailyBar{}, false
	}
	d := dates[len(dates)-1]
	return d, ds.Series[d], true
}

// quote derives close, volume and trading day from the latest bar.
func (ds *DailySeries) quote(sym provider.Symbol, source string) *provider.Quote {
	day, bar, ok := ds.Latest()
	if !ok {
		return nil
	}
	return &provider.Quote{
		Symbol:           sym.Ticker,
		Name:             sym.Name,
		Source:           source,
		Price:            provider.ParseNumber(bar.Close),
		Volume:           provider.ParseInt(bar.Volume),
		LatestTradingDay: day,
	}
}

// points returns up to n trailing closes, oldest first.
func (ds *DailySeries) points(n int) []provider.PricePoint {
	dates := ds.Dates()
	if n > 0 && len(dates) > n {
		dates = dates[len(dates)-n:]
	}
	out := make([]provider.PricePoint, 0, len(dates))
	for _, d := range dates {
		c := provider.ParseNumber(ds.Series[d].Close)
		if c == nil {
			continue
		}
		out = append(out, provider.PricePoint{Date: d, Close: *c})
	}
	return out
}
