package ratelimit

import (
	"context"
	"sync"
	"time"

	"stockreport/internal/provider"
)

// DefaultPause is the gap the report run leaves after each live call.
const DefaultPause = time.Second

// Pacer blocks between live provider calls.
type Pacer interface {
	Pause(ctx context.Context) error
}

// Limiter gates a single call.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Fixed pauses for the same interval every time.
type Fixed struct {
	Interval time.Duration
}

func (f Fixed) Pause(ctx context.Context) error {
	return sleep(ctx, f.Interval)
}

// MinInterval enforces a minimum time between call starts. Each caller
// reserves the next free slot under the lock, so concurrent callers are
// spaced rather than released together.
type MinInterval struct {
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Wait(ctx context.Context) error {
	if m.Interval <= 0 {
		return ctx.Err()
	}
	m.mu.Lock()
	now := time.Now()
	slot := m.next
	if slot.Before(now) {
		slot = now
	}
	m.next = slot.Add(m.Interval)
	m.mu.Unlock()

	return sleep(ctx, time.Until(slot))
}

// For picks the limiter for a provider: a token bucket when rpm is set,
// otherwise a minimum interval between calls, otherwise none.
func For(rpm, burst int, minInterval time.Duration) Limiter {
	switch {
	case rpm > 0:
		return PerMinute(rpm, burst)
	case minInterval > 0:
		return &MinInterval{Interval: minInterval}
	default:
		return nil
	}
}

// LimitedProvider gates every Fetch through L.
type LimitedProvider struct {
	P provider.Provider
	L Limiter
}

func (l *LimitedProvider) Name() string { return l.P.Name() }

func (l *LimitedProvider) Fetch(ctx context.Context, sym provider.Symbol) (*provider.Quote, error) {
	if l.L != nil {
		if err := l.L.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return l.P.Fetch(ctx, sym)
}

// LimitedHistory gates every History call through L.
type LimitedHistory struct {
	P provider.HistoryProvider
	L Limiter
}

func (l *LimitedHistory) Name() string { return l.P.Name() }

func (l *LimitedHistory) History(ctx context.Context, sym provider.Symbol, days int) ([]provider.PricePoint, error) {
	if l.L != nil {
		if err := l.L.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return l.P.History(ctx, sym, days)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
