package provider

import (
	"context"
	"errors"
	"log/slog"
)

// Registry maps a market classification to the provider that serves it.
type Registry struct {
	byMarket map[Market]Provider
}

func NewRegistry() *Registry {
	return &Registry{byMarket: make(map[Market]Provider, 2)}
}

// Register binds p to market, replacing any previous binding.
func (r *Registry) Register(market Market, p Provider) {
	r.byMarket[market] = p
}

// Lookup returns the provider for market.
func (r *Registry) Lookup(market Market) (Provider, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.byMarket[market]
	return p, ok && p != nil
}

// Providers returns the distinct registered providers.
func (r *Registry) Providers() []Provider {
	seen := make(map[string]struct{}, len(r.byMarket))
	out := make([]Provider, 0, len(r.byMarket))
	for _, m := range []Market{Primary, Secondary} {
		p, ok := r.byMarket[m]
		if !ok || p == nil {
			continue
		}
		if _, dup := seen[p.Name()]; dup {
			continue
		}
		seen[p.Name()] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Observer receives the outcome of every provider call. Implemented by the
// metrics collector.
type Observer interface {
	ObserveFetch(providerName, outcome string)
}

// Outcome labels reported to an Observer.
const (
	OutcomeOK           = "ok"
	OutcomeEmpty        = "empty"
	OutcomeRateLimited  = "rate_limited"
	OutcomeNoCredential = "missing_credential"
	OutcomeError        = "error"
)

// Quiet wraps a Provider so every failure collapses into "no quote".
// The cause is logged and reported to obs; callers only ever see a Quote or
// nil. Logger is expected to carry the provider and symbol attributes.
type Quiet struct {
	P      Provider
	Logger *slog.Logger
	Obs    Observer
}

func (q *Quiet) Name() string { return q.P.Name() }

func (q *Quiet) Fetch(ctx context.Context, sym Symbol) (*Quote, error) {
	quote, err := q.P.Fetch(ctx, sym)
	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = classify(err)
	case quote.Empty():
		outcome = OutcomeEmpty
		quote = nil
	}
	if q.Obs != nil {
		q.Obs.ObserveFetch(q.P.Name(), outcome)
	}
	if outcome != OutcomeOK {
		q.logger().WarnContext(ctx, "provider returned no data",
			slog.String("outcome", outcome),
			slog.Any("error", err),
		)
		return nil, nil
	}
	return quote, nil
}

func (q *Quiet) logger() *slog.Logger {
	if q.Logger != nil {
		return q.Logger
	}
	return slog.Default()
}

// Outcome maps an adapter error to its Observer label.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	return classify(err)
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return OutcomeRateLimited
	case errors.Is(err, ErrMissingCredential):
		return OutcomeNoCredential
	case errors.Is(err, ErrEmptyResponse):
		return OutcomeEmpty
	default:
		return OutcomeError
	}
}
