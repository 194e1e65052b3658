// Command history_dump writes the daily close series of every configured
// symbol to a JSON file.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"stockreport/internal/app"
	"stockreport/internal/provider"
	"stockreport/internal/provider/ratelimit"
)

// dumpFile is the output document. Series and Errors are keyed by ticker.
type dumpFile struct {
	GeneratedAt time.Time                        `json:"generated_at"`
	Days        int                              `json:"days"`
	Series      map[string][]provider.PricePoint `json:"series"`
	Errors      map[string]string                `json:"errors,omitempty"`
}

type options struct {
	days        int
	concurrency int
	retries     int
	backoff     time.Duration
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "history_dump: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		profile     string
		outPath     string
		concurrency int
		retries     int
		rpm         int
	)
	flag.StringVar(&profile, "profile", os.Getenv("APP_PROFILE"), "config profile layered over configs/base.yaml")
	flag.StringVar(&outPath, "out", "history.json", "output JSON file path")
	flag.IntVar(&concurrency, "concurrency", 2, "number of parallel requests")
	flag.IntVar(&retries, "retries", 2, "max retries when the provider signals a rate limit")
	flag.IntVar(&rpm, "rpm", 0, "max requests per minute on top of the configured provider limit (0 = none)")
	flag.Parse()

	cfg, err := app.LoadConfig(profile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, logCloser := app.NewLogger(cfg)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("closing backends", slog.Any("error", err))
		}
	}()

	hp := a.History
	if rpm > 0 {
		hp = &ratelimit.LimitedHistory{P: hp, L: ratelimit.PerMinute(rpm, 1)}
	}

	logger.Info("dumping history", slog.Int("symbols", len(a.Symbols)), slog.Int("concurrency", concurrency))
	doc := dump(ctx, logger, hp, a.Symbols, options{
		days:        cfg.Report.HistoryDays,
		concurrency: concurrency,
		retries:     retries,
		backoff:     2 * time.Second,
	})

	if err := writeFile(outPath, doc); err != nil {
		return err
	}
	logger.Info("done", slog.String("out", outPath), slog.Int("series", len(doc.Series)), slog.Int("errors", len(doc.Errors)))
	return nil
}

// dump fetches every symbol's series with bounded concurrency. Failures are
// recorded per symbol and never abort the run.
func dump(ctx context.Context, logger *slog.Logger, hp provider.HistoryProvider, syms []provider.Symbol, opts options) *dumpFile {
	if opts.concurrency <= 0 {
		opts.concurrency = 1
	}
	doc := &dumpFile{
		GeneratedAt: time.Now().UTC(),
		Days:        opts.days,
		Series:      make(map[string][]provider.PricePoint, len(syms)),
		Errors:      map[string]string{},
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(opts.concurrency)
	for _, sym := range syms {
		sym := sym
		g.Go(func() error {
			pts, err := fetchWithRetry(ctx, hp, sym, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("history failed", slog.String("symbol", sym.Ticker), slog.Any("error", err))
				doc.Errors[sym.Ticker] = err.Error()
				return nil
			}
			doc.Series[sym.Ticker] = pts
			return nil
		})
	}
	_ = g.Wait()
	return doc
}

func fetchWithRetry(ctx context.Context, hp provider.HistoryProvider, sym provider.Symbol, opts options) ([]provider.PricePoint, error) {
	for attempt := 0; ; attempt++ {
		pts, err := hp.History(ctx, sym, opts.days)
		if err == nil || !errors.Is(err, provider.ErrRateLimited) || attempt >= opts.retries {
			return pts, err
		}
		back := opts.backoff * time.Duration(1<<attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(back):
		}
	}
}

func writeFile(path string, doc *dumpFile) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriterSize(f, 1<<16)
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush: %w", err)
	}
	return f.Close()
}
