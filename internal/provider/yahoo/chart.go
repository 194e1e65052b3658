package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"stockreport/internal/provider"
)

// Chart is one chart result: parallel timestamp and close arrays. Closes are
// null on halted days.
type Chart struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		Currency  string `json:"currency"`
		GMTOffset int    `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartResponse struct {
	Chart struct {
		Result []Chart    `json:"result"`
		Error  *apiError `json:"error"`
	} `json:"chart"`
}

// rangeFor picks the smallest chart range covering n trading days.
func rangeFor(n int) string {
	switch {
	case n <= 5:
		return "5d"
	case n <= 21:
		return "1mo"
	case n <= 63:
		return "3mo"
	case n <= 126:
		return "6mo"
	default:
		return "1y"
	}
}

// Chart retrieves daily bars covering at least days trading days.
func (c *APIClient) Chart(ctx context.Context, symbol string, days int) (*Chart, error) {
	var resp chartResponse
	path := "/v8/finance/chart/" + url.PathEscape(symbol)
	params := url.Values{"interval": {"1d"}, "range": {rangeFor(days)}}
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if err := resp.Chart.Error.err("chart"); err != nil {
		return nil, err
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("yahoo: chart %s: %w", symbol, provider.ErrEmptyResponse)
	}
	return &resp.Chart.Result[0], nil
}

// Points pairs timestamps with closes in the exchange's local date, skipping
// null closes, and keeps the trailing n points oldest first.
func (ch *Chart) Points(n int) []provider.PricePoint {
	if len(ch.Indicators.Quote) == 0 {
		return nil
	}
	closes := ch.Indicators.Quote[0].Close
	loc := time.FixedZone("exchange", ch.Meta.GMTOffset)

	out := make([]provider.PricePoint, 0, len(ch.Timestamp))
	for i, ts := range ch.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		out = append(out, provider.PricePoint{
			Date:  time.Unix(ts, 0).In(loc).Format("2006-01-02"),
			Close: decimal.NewFromFloat(*closes[i]),
		})
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
