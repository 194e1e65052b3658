// Command report runs one report build and prints it to stdout.
//
// With the default memory cache backend nothing survives the process, so
// every run makes live calls and -clear-cache has nothing to drop. Select
// cache.backend redis or firestore (the dev profile uses redis) for 24h
// reuse across runs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"stockreport/internal/app"
	"stockreport/internal/provider"
	"stockreport/internal/report"
	"stockreport/internal/score"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		profile    string
		asJSON     bool
		clearCache bool
		history    string
	)
	flag.StringVar(&profile, "profile", os.Getenv("APP_PROFILE"), "config profile layered over configs/base.yaml")
	flag.BoolVar(&asJSON, "json", false, "print the report as JSON")
	// Only meaningful with a persistent cache backend.
	flag.BoolVar(&clearCache, "clear-cache", false, "drop all cached quotes and series before the run (no effect with cache.backend memory)")
	flag.StringVar(&history, "history", "", "print the price series for one configured ticker instead of the report")
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

	if clearCache && !persistentCache(cfg.Cache.Backend) {
		logger.WarnContext(ctx, "clear-cache has no effect: cache backend keeps nothing between runs",
			slog.String("backend", cfg.Cache.Backend))
	}
	if clearCache {
		if err := a.Builder.ClearCache(ctx); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
	}

	if history != "" {
		sym, ok := cfg.Symbol(history)
		if !ok {
			return fmt.Errorf("unknown symbol %q", history)
		}
		pts, err := a.Builder.History(ctx, sym)
		if err != nil {
			return fmt.Errorf("history %s: %w", sym.Ticker, err)
		}
		if asJSON {
			return writeJSON(os.Stdout, pts)
		}
		return printHistory(os.Stdout, sym, pts)
	}

	rep := a.Builder.Build(ctx, a.Symbols)
	if asJSON {
		return writeJSON(os.Stdout, rep)
	}
	return printReport(os.Stdout, rep)
}

// persistentCache reports whether backend keeps entries between runs.
func persistentCache(backend string) bool {
	return backend == "redis" || backend == "firestore"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// printReport writes the primary and secondary tables, the call count and
// the recommendation tally.
func printReport(w io.Writer, rep *report.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "Ticker\tName\tP/E\tPEG\tP/S\tDiv Yield\tOp Margin\tRec")
	for _, r := range rep.Market(provider.Primary) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Ticker, r.Name, r.PERatio, r.PEGRatio, r.PriceToSales, r.DividendYield, r.OperatingMargin, r.Recommendation)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if secondary := rep.Market(provider.Secondary); len(secondary) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(tw, "Ticker\tName\tTrading Day\tClose\tVolume\tRec")
		for _, r := range secondary {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Ticker, r.Name, r.LatestTradingDay, r.Price, r.Volume, r.Recommendation)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\nAPI calls made: %d\n", rep.Budget.Calls)

	var tally []string
	for _, rec := range score.All() {
		n := rep.Summary.For(provider.Primary, rec) + rep.Summary.For(provider.Secondary, rec)
		if n > 0 {
			tally = append(tally, fmt.Sprintf("%s %d", rec, n))
		}
	}
	if len(tally) > 0 {
		fmt.Fprintf(w, "Summary: %s (cached %d of %d)\n", strings.Join(tally, ", "), rep.Summary.Cached, rep.Summary.Total)
	}
	return nil
}

func printHistory(w io.Writer, sym provider.Symbol, pts []provider.PricePoint) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", sym.Ticker, sym.Name)
	fmt.Fprintln(tw, "Date\tClose")
	for _, p := range pts {
		fmt.Fprintf(tw, "%s\t%s\n", p.Date, p.Close.StringFixed(2))
	}
	return tw.Flush()
}
