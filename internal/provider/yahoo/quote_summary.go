package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"stockreport/internal/provider"
)

// summaryModules are the quoteSummary sections the adapter reads.
var summaryModules = []string{"financialData", "defaultKeyStatistics", "summaryDetail"}

// FinancialData is the financialData module.
type FinancialData struct {
	CurrentPrice     *Value `json:"currentPrice"`
	OperatingMargins *Value `json:"operatingMargins"`
	DebtToEquity     *Value `json:"debtToEquity"`
}

// KeyStatistics is the defaultKeyStatistics module.
type KeyStatistics struct {
	PEGRatio *Value `json:"pegRatio"`
}

// SummaryDetail is the summaryDetail module.
type SummaryDetail struct {
	TrailingPE                   *Value `json:"trailingPE"`
	PriceToSalesTrailing12Months *Value `json:"priceToSalesTrailing12Months"`
	DividendYield                *Value `json:"dividendYield"`
	Volume                       *Value `json:"volume"`
}

// Summary is one quoteSummary result. Any module may be missing.
type Summary struct {
	FinancialData        *FinancialData `json:"financialData"`
	DefaultKeyStatistics *KeyStatistics `json:"defaultKeyStatistics"`
	SummaryDetail        *SummaryDetail `json:"summaryDetail"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []Summary  `json:"result"`
		Error  *apiError `json:"error"`
	} `json:"quoteSummary"`
}

// QuoteSummary retrieves the financialData, defaultKeyStatistics and
// summaryDetail modules for symbol.
func (c *APIClient) QuoteSummary(ctx context.Context, symbol string) (*Summary, error) {
	var resp quoteSummaryResponse
	path := "/v10/finance/quoteSummary/" + url.PathEscape(symbol)
	if err := c.get(ctx, path, url.Values{"modules": {strings.Join(summaryModules, ",")}}, &resp); err != nil {
		return nil, err
	}
	if err := resp.QuoteSummary.Error.err("quoteSummary"); err != nil {
		return nil, err
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo: quoteSummary %s: %w", symbol, provider.ErrEmptyResponse)
	}
	return &resp.QuoteSummary.Result[0], nil
}

// quote extracts the normalized record. Absent modules and absent fields
// both yield nil fields.
func (s *Summary) quote(sym provider.Symbol, source string) *provider.Quote {
	q := &provider.Quote{Symbol: sym.Ticker, Name: sym.Name, Source: source}
	if fd := s.FinancialData; fd != nil {
		q.Price = fd.CurrentPrice.Decimal()
		q.OperatingMargin = fd.OperatingMargins.Decimal()
		q.DebtToEquity = fd.DebtToEquity.Decimal()
	}
	if ks := s.DefaultKeyStatistics; ks != nil {
		q.PEGRatio = ks.PEGRatio.Decimal()
	}
	if sd := s.SummaryDetail; sd != nil {
		q.PERatio = sd.TrailingPE.Decimal()
		q.PriceToSales = sd.PriceToSalesTrailing12Months.Decimal()
		q.DividendYield = sd.DividendYield.Decimal()
		q.Volume = sd.Volume.Int()
	}
	return q
}
