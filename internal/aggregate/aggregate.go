package aggregate

import (
	"slices"

	"stockreport/internal/provider"
	"stockreport/internal/score"
)

// Item is one scored symbol from a report run.
type Item struct {
	Market         provider.Market
	Recommendation score.Recommendation
	Source         string // provider key; empty when no quote was available
	Cached         bool
}

// Count is the number of symbols in one (market, recommendation) bucket.
type Count struct {
	Market         provider.Market      `json:"market"`
	Recommendation score.Recommendation `json:"recommendation"`
	Count          int                  `json:"count"`
}

// Summary is the report footer: bucket counts plus how the quotes were
// obtained.
type Summary struct {
	Total    int            `json:"total"`
	Quoted   int            `json:"quoted"`
	Cached   int            `json:"cached"`
	BySource map[string]int `json:"by_source"`
	Counts   []Count        `json:"counts"`
}

type bucket struct {
	market provider.Market
	rec    score.Recommendation
}

// Tally groups items by market and recommendation. Counts are ordered
// primary before secondary, then strongest recommendation first; empty
// buckets are omitted.
func Tally(items []Item) Summary {
	s := Summary{Total: len(items), BySource: map[string]int{}}
	counts := make(map[bucket]int, len(items))

	for _, it := range items {
		counts[bucket{it.Market, it.Recommendation}]++
		if it.Source != "" {
			s.Quoted++
			s.BySource[it.Source]++
		}
		if it.Cached {
			s.Cached++
		}
	}

	s.Counts = make([]Count, 0, len(counts))
	for b, n := range counts {
		s.Counts = append(s.Counts, Count{Market: b.market, Recommendation: b.rec, Count: n})
	}
	slices.SortFunc(s.Counts, func(a, b Count) int {
		if a.Market != b.Market {
			return marketRank(a.Market) - marketRank(b.Market)
		}
		return int(b.Recommendation) - int(a.Recommendation)
	})
	return s
}

// For returns the count for one bucket.
func (s Summary) For(m provider.Market, r score.Recommendation) int {
	for _, c := range s.Counts {
		if c.Market == m && c.Recommendation == r {
			return c.Count
		}
	}
	return 0
}

func marketRank(m provider.Market) int {
	switch m {
	case provider.Primary:
		return 0
	case provider.Secondary:
		return 1
	default:
		return 2
	}
}
