package alphavantage

import (
	"context"
	"fmt"

	"stockreport/internal/provider"
)

// Name is the provider key used in cache keys and metrics.
const Name = "av"

type Config struct {
	Name string // default: av
	// RequireKey makes the adapter refuse to call out without an API key.
	// Turn it off only when a gateway in front of Alpha Vantage adds the key.
	RequireKey bool
}

// Adapter serves fundamentals from Alpha Vantage. Primary-market symbols use
// the OVERVIEW endpoint; secondary-market symbols only have a daily series,
// so their quote carries close, volume and trading day.
type Adapter struct {
	cfg    Config
	client *APIClient
}

func New(cfg Config, client *APIClient) *Adapter {
	if cfg.Name == "" {
		cfg.Name = Name
	}
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return a.cfg.Name }

func (a *Adapter) Fetch(ctx context.Context, sym provider.Symbol) (*provider.Quote, error) {
	if a.cfg.RequireKey && !a.client.HasKey() {
		return nil, fmt.Errorf("%s: %w", a.cfg.Name, provider.ErrMissingCredential)
	}

	if sym.Market == provider.Secondary {
		ds, err := a.client.DailySeries(ctx, sym.Ticker)
		if err != nil {
			return nil, err
		}
		q := ds.quote(sym, a.cfg.Name)
		if q == nil {
			return nil, fmt.Errorf("%s: %s: %w", a.cfg.Name, sym.Ticker, provider.ErrEmptyResponse)
		}
		return q, nil
	}

	ov, err := a.client.Overview(ctx, sym.Ticker)
	if err != nil {
		return nil, err
	}
	q := ov.quote(a.cfg.Name)
	if q.Name == "" {
		q.Name = sym.Name
	}
	return q, nil
}

// History returns the trailing days of daily closes, oldest first.
func (a *Adapter) History(ctx context.Context, sym provider.Symbol, days int) ([]provider.PricePoint, error) {
	if a.cfg.RequireKey && !a.client.HasKey() {
		return nil, fmt.Errorf("%s: %w", a.cfg.Name, provider.ErrMissingCredential)
	}
	ds, err := a.client.DailySeries(ctx, sym.Ticker)
	if err != nil {
		return nil, err
	}
	return ds.points(days), nil
}
