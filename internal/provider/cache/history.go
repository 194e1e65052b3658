package cache

import (
	"context"
	"log/slog"

	"stockreport/internal/provider"
)

// History caches a HistoryProvider's series per symbol. Only non-empty
// series are stored; failures pass through untouched.
type History struct {
	P     provider.HistoryProvider
	Cache *TTL[[]provider.PricePoint]
}

func (h *History) Name() string { return h.P.Name() }

func (h *History) History(ctx context.Context, sym provider.Symbol, days int) ([]provider.PricePoint, error) {
	if pts, ok := h.Cache.Get(ctx, h.P.Name(), sym.Ticker); ok {
		return trailing(pts, days), nil
	}
	pts, err := h.P.History(ctx, sym, days)
	if err != nil {
		return nil, err
	}
	if len(pts) > 0 {
		if err := h.Cache.Put(ctx, h.P.Name(), sym.Ticker, pts); err != nil {
			h.Cache.logger.WarnContext(ctx, "cache write failed",
				slog.String("provider", h.P.Name()),
				slog.String("symbol", sym.Ticker),
				slog.Any("error", err),
			)
		}
	}
	return pts, nil
}

func trailing(pts []provider.PricePoint, n int) []provider.PricePoint {
	if n > 0 && len(pts) > n {
		return pts[len(pts)-n:]
	}
	return pts
}

// Clear drops every cached series.
func (h *History) Clear(ctx context.Context) error {
	return h.Cache.Clear(ctx)
}
