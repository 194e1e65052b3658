// Package app assembles providers, cache, limiters and the report builder
// from configuration. Every binary starts here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"

	"stockreport/internal/config"
	"stockreport/internal/httpx"
	"stockreport/internal/metrics"
	"stockreport/internal/provider"
	"stockreport/internal/provider/alphavantage"
	"stockreport/internal/provider/cache"
	"stockreport/internal/provider/cache/firestorestore"
	"stockreport/internal/provider/cache/redisstore"
	"stockreport/internal/provider/ratelimit"
	"stockreport/internal/provider/yahoo"
	"stockreport/internal/report"
)

// source is an adapter serving both quotes and history.
type source interface {
	provider.Provider
	provider.HistoryProvider
}

type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Metrics  *metrics.Collector
	Registry *provider.Registry
	Builder  *report.Builder
	Symbols  []provider.Symbol
	// History is the cached, rate-limited history provider.
	History provider.HistoryProvider
	// Limiters gate live calls per provider, keyed by provider name.
	Limiters map[string]ratelimit.Limiter

	closers []func() error
}

// New wires the application. The caller must Close it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Collector) (*App, error) {
	if m == nil {
		m = metrics.New()
	}
	a := &App{Config: cfg, Logger: logger, Metrics: m, Symbols: cfg.SymbolList()}

	sources, err := newSources(cfg)
	if err != nil {
		return nil, err
	}

	a.Limiters = make(map[string]ratelimit.Limiter, len(sources))
	for key, pc := range map[string]config.ProviderConfig{
		config.AlphaVantage: cfg.Providers.AlphaVantage,
		config.Yahoo:        cfg.Providers.Yahoo,
	} {
		if l := ratelimit.For(pc.RPM, pc.Burst, pc.MinInterval); l != nil {
			a.Limiters[sources[key].Name()] = l
		}
	}

	a.Registry = provider.NewRegistry()
	a.Registry.Register(provider.Primary, sources[cfg.Report.PrimaryProvider])
	a.Registry.Register(provider.Secondary, sources[cfg.Report.SecondaryProvider])

	store, err := a.newStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	quotes := cache.New[provider.Quote](store, cache.Config{
		TTL:    cfg.Report.CacheTTL,
		Logger: logger,
		Obs:    m,
	})

	hs := sources[cfg.Report.HistoryProvider]
	a.History = &cache.History{
		P: &ratelimit.LimitedHistory{P: hs, L: a.Limiters[hs.Name()]},
		Cache: cache.New[[]provider.PricePoint](store, cache.Config{
			TTL:    cfg.Report.CacheTTL,
			Kind:   "history",
			Logger: logger,
			Obs:    m,
		}),
	}

	locale, err := language.Parse(cfg.Report.Locale)
	if err != nil {
		return nil, fmt.Errorf("report locale: %w", err)
	}

	a.Builder = report.New(a.Registry, quotes, a.History, report.Options{
		CallLimit:   cfg.Report.CallLimit,
		HistoryDays: cfg.Report.HistoryDays,
		Workers:     cfg.Report.Workers,
		Pacer:       ratelimit.Fixed{Interval: cfg.Report.Pause},
		Limiters:    a.Limiters,
		Locale:      locale,
		Logger:      logger,
		FetchObs:    m,
		Obs:         m,
	})
	return a, nil
}

func newSources(cfg *config.Config) (map[string]source, error) {
	avCfg := cfg.Providers.AlphaVantage
	avHTTP := httpx.New(avCfg.Timeout)
	avClient, err := alphavantage.NewAPIClient(avCfg.APIKey,
		alphavantage.WithBaseURL(avCfg.BaseURL),
		alphavantage.WithHTTPClient(avHTTP),
		alphavantage.WithHeader(http.Header{"Accept": []string{"application/json"}}),
	)
	if err != nil {
		return nil, fmt.Errorf("alphavantage client: %w", err)
	}

	yCfg := cfg.Providers.Yahoo
	yHTTP := httpx.New(yCfg.Timeout)
	yClient, err := yahoo.NewAPIClient(yCfg.APIKey,
		yahoo.WithBaseURL(yCfg.BaseURL),
		yahoo.WithHTTPClient(yHTTP),
		yahoo.WithHeader(http.Header{"Accept": []string{"application/json"}}),
	)
	if err != nil {
		return nil, fmt.Errorf("yahoo client: %w", err)
	}

	return map[string]source{
		config.AlphaVantage: alphavantage.New(alphavantage.Config{RequireKey: avCfg.RequireKey}, avClient),
		config.Yahoo:        yahoo.New(yahoo.Config{RequireKey: yCfg.RequireKey, TickerSuffixes: yCfg.SuffixMap()}, yClient),
	}, nil
}

func (a *App) newStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, client.Close)
		s := redisstore.New(client, cfg.RedisPrefix)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := s.Ping(pingCtx); err != nil {
			return nil, errors.Join(fmt.Errorf("redis %s: %w", cfg.RedisAddr, err), a.Close())
		}
		a.Logger.InfoContext(ctx, "cache backend ready", slog.String("backend", "redis"), slog.String("addr", cfg.RedisAddr))
		return s, nil
	case "firestore":
		s, client, err := firestorestore.Open(ctx, cfg.FirestoreProject, cfg.FirestoreCollection)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		a.Logger.InfoContext(ctx, "cache backend ready", slog.String("backend", "firestore"), slog.String("project", cfg.FirestoreProject))
		return s, nil
	default:
		return cache.NewMemory(), nil
	}
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
