package yahoo

import (
	"context"
	"fmt"
	"strings"

	"stockreport/internal/provider"
)

// Name is the provider key used in cache keys and metrics.
const Name = "yahoo"

type Config struct {
	Name string // default: yahoo
	// RequireKey makes the adapter refuse to call out without an API key,
	// for deployments that reach Yahoo through a keyed gateway.
	RequireKey bool
	// TickerSuffixes rewrites a configured ticker suffix to Yahoo's listing
	// suffix before any request, e.g. ".TRT" -> ".TO". Matching ignores case.
	TickerSuffixes map[string]string
}

// Adapter serves quote-summary fundamentals and chart history from Yahoo.
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
	s, err := a.client.QuoteSummary(ctx, a.remote(sym.Ticker))
	if err != nil {
		return nil, err
	}
	return s.quote(sym, a.cfg.Name), nil
}

// History returns the trailing days of daily closes, oldest first.
func (a *Adapter) History(ctx context.Context, sym provider.Symbol, days int) ([]provider.PricePoint, error) {
	if a.cfg.RequireKey && !a.client.HasKey() {
		return nil, fmt.Errorf("%s: %w", a.cfg.Name, provider.ErrMissingCredential)
	}
	ch, err := a.client.Chart(ctx, a.remote(sym.Ticker), days)
	if err != nil {
		return nil, err
	}
	return ch.Points(days), nil
}

// remote maps ticker to the symbol Yahoo lists it under. The longest
// matching suffix wins.
func (a *Adapter) remote(ticker string) string {
	upper := strings.ToUpper(ticker)
	from, to := "", ""
	for f, t := range a.cfg.TickerSuffixes {
		if f != "" && len(f) > len(from) && strings.HasSuffix(upper, strings.ToUpper(f)) {
			from, to = f, t
		}
	}
	if from == "" {
		return ticker
	}
	return ticker[:len(ticker)-len(from)] + to
}
