package alphavantage

import (
	"context"
	"fmt"
	"net/url"

	"stockreport/internal/provider"
)

// Overview is the subset of the OVERVIEW payload this module reads. Alpha
// Vantage sends every number as a string and uses "None" or "-" for gaps.
type Overview struct {
	Symbol               string `json:"Symbol"`
	Name                 string `json:"Name"`
	Exchange             string `json:"Exchange"`
	Currency             string `json:"Currency"`
	PERatio              string `json:"PERatio"`
	PEGRatio             string `json:"PEGRatio"`
	PriceToSalesRatioTTM string `json:"PriceToSalesRatioTTM"`
	DividendYield        string `json:"DividendYield"`
	OperatingMarginTTM   string `json:"OperatingMarginTTM"`
	ProfitMargin         string `json:"ProfitMargin"`
	MarketCapitalization string `json:"MarketCapitalization"`
	LatestQuarter        string `json:"LatestQuarter"`
}

// Overview retrieves company fundamentals for a primary-market symbol.
func (c *APIClient) Overview(ctx context.Context, symbol string) (*Overview, error) {
	var ov Overview
	err := c.get(ctx, url.Values{
		"function":    {"OVERVIEW"},
		"symbol":      {symbol},
		"entitlement": {"delayed"},
	}, &ov)
	if err != nil {
		return nil, err
	}
	if ov.Symbol == "" {
		return nil, fmt.Errorf("alphavantage: overview %s: %w", symbol, provider.ErrEmptyResponse)
	}
	return &ov, nil
}

// quote maps the overview onto the normalized record.
func (ov *Overview) quote(source string) *provider.Quote {
	return &provider.Quote{
		Symbol:          ov.Symbol,
		Name:            ov.Name,
		Source:          source,
		PERatio:         provider.ParseNumber(ov.PERatio),
		PEGRatio:        provider.ParseNumber(ov.PEGRatio),
		PriceToSales:    provider.ParseNumber(ov.PriceToSalesRatioTTM),
		DividendYield:   provider.ParseNumber(ov.DividendYield),
		OperatingMargin: provider.ParseNumber(ov.OperatingMarginTTM),
	}
}
