// Package report walks the symbol list through cache, provider and scorer
// under a per-run call budget and produces display rows.
package report

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"stockreport/internal/aggregate"
	"stockreport/internal/provider"
	"stockreport/internal/provider/cache"
	"stockreport/internal/provider/ratelimit"
)

// DefaultCallLimit caps live provider calls per run.
const DefaultCallLimit = 25

// DefaultHistoryDays is the length of the chart series.
const DefaultHistoryDays = 30

// ErrNoHistory is returned by History when no history provider is wired.
var ErrNoHistory = errors.New("no history provider configured")

// Budget reports live calls made against the per-run limit.
type Budget struct {
	Calls int `json:"calls"`
	Limit int `json:"limit"`
}

// Report is the result of one Build.
type Report struct {
	RunID       uuid.UUID         `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Rows        []Row             `json:"rows"`
	Budget      Budget            `json:"budget"`
	Summary     aggregate.Summary `json:"summary"`
}

// Market returns the rows of one market in report order.
func (r *Report) Market(m provider.Market) []Row {
	var out []Row
	for _, row := range r.Rows {
		if row.Market == m {
			out = append(out, row)
		}
	}
	return out
}

// Observer receives run-level events. Implemented by the metrics collector.
type Observer interface {
	ObservePause()
	ObserveRun(d time.Duration, calls int)
}

// Options tunes a Builder. Zero values fall back to defaults.
type Options struct {
	CallLimit   int
	HistoryDays int
	// Workers > 1 fetches concurrently. Pacing then comes from Limiters
	// instead of the fixed Pacer.
	Workers  int
	Pacer    ratelimit.Pacer
	Limiters map[string]ratelimit.Limiter // keyed by provider name
	Locale   language.Tag
	Logger   *slog.Logger
	FetchObs provider.Observer
	Obs      Observer
	// Now overrides the clock. Used by tests.
	Now func() time.Time
}

type Builder struct {
	registry *provider.Registry
	quotes   *cache.TTL[provider.Quote]
	history  provider.HistoryProvider
	opts     Options
	format   Formatter
}

func New(reg *provider.Registry, quotes *cache.TTL[provider.Quote], history provider.HistoryProvider, opts Options) *Builder {
	if opts.CallLimit <= 0 {
		opts.CallLimit = DefaultCallLimit
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = DefaultHistoryDays
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Pacer == nil {
		opts.Pacer = ratelimit.Fixed{Interval: ratelimit.DefaultPause}
	}
	if opts.Locale == language.Und {
		opts.Locale = language.English
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if quotes == nil {
		quotes = cache.New[provider.Quote](cache.NewMemory(), cache.Config{Logger: opts.Logger})
	}
	return &Builder{
		registry: reg,
		quotes:   quotes,
		history:  history,
		opts:     opts,
		format:   NewFormatter(opts.Locale),
	}
}

// budget is a per-run call counter. reserve never lets calls pass limit,
// even with concurrent callers.
type budget struct {
	calls atomic.Int64
	limit int64
}

func (b *budget) reserve() bool {
	for {
		c := b.calls.Load()
		if c >= b.limit {
			return false
		}
		if b.calls.CompareAndSwap(c, c+1) {
			return true
		}
	}
}

func (b *budget) exhausted() bool { return b.calls.Load() >= b.limit }

func (b *budget) snapshot() Budget {
	return Budget{Calls: int(b.calls.Load()), Limit: int(b.limit)}
}

// resolution records how a symbol's quote was obtained.
type resolution struct {
	called bool
	cached bool
}

// Build produces one report row per symbol, in input order. It never fails:
// a symbol whose quote could not be obtained gets an all-N/A row.
func (b *Builder) Build(ctx context.Context, symbols []provider.Symbol) *Report {
	start := b.opts.Now()
	runID := uuid.New()
	log := b.opts.Logger.With(slog.String("run_id", runID.String()))
	bud := &budget{limit: int64(b.opts.CallLimit)}

	log.InfoContext(ctx, "report run started",
		slog.Int("symbols", len(symbols)),
		slog.Int("limit", b.opts.CallLimit),
		slog.Int("workers", b.opts.Workers),
	)

	var rows []Row
	if b.opts.Workers > 1 {
		rows = b.buildConcurrent(ctx, log, symbols, bud)
	} else {
		rows = b.buildSequential(ctx, log, symbols, bud)
	}

	elapsed := b.opts.Now().Sub(start)
	spent := bud.snapshot()
	if b.opts.Obs != nil {
		b.opts.Obs.ObserveRun(elapsed, spent.Calls)
	}
	log.InfoContext(ctx, "report run finished",
		slog.Int("calls", spent.Calls),
		slog.Duration("elapsed", elapsed),
	)

	return &Report{
		RunID:       runID,
		GeneratedAt: start.UTC(),
		Rows:        rows,
		Budget:      spent,
		Summary:     summarize(rows),
	}
}

func (b *Builder) buildSequential(ctx context.Context, log *slog.Logger, symbols []provider.Symbol, bud *budget) []Row {
	rows := make([]Row, 0, len(symbols))
	for i, sym := range symbols {
		q, res := b.resolve(ctx, log, sym, bud, nil)
		rows = append(rows, b.format.Row(sym, q, res.cached))

		if !res.called || bud.exhausted() || i == len(symbols)-1 {
			continue
		}
		if err := b.opts.Pacer.Pause(ctx); err != nil {
			log.DebugContext(ctx, "pause interrupted", slog.Any("error", err))
			continue
		}
		if b.opts.Obs != nil {
			b.opts.Obs.ObservePause()
		}
	}
	return rows
}

func (b *Builder) buildConcurrent(ctx context.Context, log *slog.Logger, symbols []provider.Symbol, bud *budget) []Row {
	rows := make([]Row, len(symbols))
	var g errgroup.Group
	g.SetLimit(b.opts.Workers)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			q, res := b.resolve(ctx, log, sym, bud, b.opts.Limiters[b.providerName(sym)])
			rows[i] = b.format.Row(sym, q, res.cached)
			return nil
		})
	}
	_ = g.Wait()
	return rows
}

func (b *Builder) providerName(sym provider.Symbol) string {
	if p, ok := b.registry.Lookup(sym.Market); ok {
		return p.Name()
	}
	return ""
}

// resolve answers one symbol from cache, or from a live call when the budget
// allows. Only successful live results are written to the cache.
func (b *Builder) resolve(ctx context.Context, log *slog.Logger, sym provider.Symbol, bud *budget, lim ratelimit.Limiter) (*provider.Quote, resolution) {
	log = log.With(slog.String("symbol", sym.Ticker))

	p, ok := b.registry.Lookup(sym.Market)
	if !ok {
		log.WarnContext(ctx, "no provider for market", slog.String("market", string(sym.Market)))
		return nil, resolution{}
	}
	log = log.With(slog.String("provider", p.Name()))

	if q, ok := b.quotes.Get(ctx, p.Name(), sym.Ticker); ok {
		log.DebugContext(ctx, "cache hit")
		return &q, resolution{cached: true}
	}
	if ctx.Err() != nil {
		return nil, resolution{}
	}
	if !bud.reserve() {
		log.InfoContext(ctx, "call budget exhausted", slog.Int("limit", int(bud.limit)))
		return nil, resolution{}
	}

	var fetcher provider.Provider = p
	if lim != nil {
		fetcher = &ratelimit.LimitedProvider{P: p, L: lim}
	}
	fetcher = &provider.Quiet{P: fetcher, Logger: log, Obs: b.opts.FetchObs}

	q, _ := fetcher.Fetch(ctx, sym)
	if q == nil {
		return nil, resolution{called: true}
	}
	log.DebugContext(ctx, "live fetch", slog.Int64("calls", bud.calls.Load()))
	if err := b.quotes.Put(ctx, p.Name(), sym.Ticker, *q); err != nil {
		log.WarnContext(ctx, "cache write failed", slog.Any("error", err))
	}
	return q, resolution{called: true}
}

// History returns the chart series for sym. It is not governed by the
// report call budget.
func (b *Builder) History(ctx context.Context, sym provider.Symbol) ([]provider.PricePoint, error) {
	if b.history == nil {
		return nil, ErrNoHistory
	}
	return b.history.History(ctx, sym, b.opts.HistoryDays)
}

// ClearCache drops every cached quote and series.
func (b *Builder) ClearCache(ctx context.Context) error {
	errs := []error{b.quotes.Clear(ctx)}
	if c, ok := b.history.(interface{ Clear(context.Context) error }); ok {
		errs = append(errs, c.Clear(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	b.opts.Logger.InfoContext(ctx, "cache cleared")
	return nil
}
