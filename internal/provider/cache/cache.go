package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// DefaultTTL is how long a fetched quote stays usable.
const DefaultTTL = 24 * time.Hour

// Store is a plain key/value surface with no expiry of its own.
// Freshness is enforced by TTL at read time.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error
}

// Observer receives cache lookup results. Implemented by the metrics collector.
type Observer interface {
	ObserveCache(kind, result string)
}

// Lookup results reported to an Observer.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultStale = "stale"
	ResultError = "error"
)

// Entry is the stored form of one cached value.
type Entry[V any] struct {
	Provider  string `json:"provider"`
	Symbol    string `json:"symbol"`
	Value     V      `json:"value"`
	FetchedAt int64  `json:"fetched_at"` // epoch millis
}

// TTL caches values per provider and symbol on top of a Store.
// An entry answers reads only while now - FetchedAt < TTL; stale entries are
// left in place until the next Put overwrites them or Clear runs.
type TTL[V any] struct {
	store  Store
	ttl    time.Duration
	kind   string
	logger *slog.Logger
	obs    Observer
	now    func() time.Time
}

// Config tunes a TTL cache. Zero values fall back to defaults.
type Config struct {
	TTL    time.Duration
	Kind   string // appended to the provider key, and the metrics label
	Logger *slog.Logger
	Obs    Observer
	// Now overrides the clock. Used by tests.
	Now func() time.Time
}

func New[V any](store Store, cfg Config) *TTL[V] {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Kind == "" {
		cfg.Kind = "quote"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TTL[V]{store: store, ttl: cfg.TTL, kind: cfg.Kind, logger: cfg.Logger, obs: cfg.Obs, now: cfg.Now}
}

// Key builds the composite storage key so providers never collide.
// Quotes keep the "<provider>_<SYMBOL>" layout; other kinds add a suffix.
func (c *TTL[V]) Key(providerKey, symbol string) string {
	if c.kind == "quote" {
		return providerKey + "_" + symbol
	}
	return providerKey + "_" + c.kind + "_" + symbol
}

// Get returns the cached value when it is still fresh. Store failures and
// undecodable entries count as misses.
func (c *TTL[V]) Get(ctx context.Context, providerKey, symbol string) (V, bool) {
	var zero V
	key := c.Key(providerKey, symbol)

	b, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.Any("error", err))
		c.observe(ResultError)
		return zero, false
	}
	if !ok {
		c.observe(ResultMiss)
		return zero, false
	}

	var e Entry[V]
	if err := json.Unmarshal(b, &e); err != nil {
		c.logger.WarnContext(ctx, "cache entry undecodable", slog.String("key", key), slog.Any("error", err))
		c.observe(ResultError)
		return zero, false
	}
	if c.now().UnixMilli()-e.FetchedAt >= c.ttl.Milliseconds() {
		c.observe(ResultStale)
		return zero, false
	}
	c.observe(ResultHit)
	return e.Value, true
}

// Put stores v stamped with the current time, overwriting any entry.
func (c *TTL[V]) Put(ctx context.Context, providerKey, symbol string, v V) error {
	b, err := json.Marshal(Entry[V]{
		Provider:  providerKey,
		Symbol:    symbol,
		Value:     v,
		FetchedAt: c.now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.Key(providerKey, symbol), b)
}

// Clear drops every entry in the underlying store.
func (c *TTL[V]) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

func (c *TTL[V]) observe(result string) {
	if c.obs != nil {
		c.obs.ObserveCache(c.kind, result)
	}
}
