package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"stockreport/internal/provider"
	"stockreport/internal/score"
)

func TestFormatter(t *testing.T) {
	t.Parallel()

	f := NewFormatter(language.English)
	vol := int64(4081733)

	assert.Equal(t, NA, f.Ratio(nil))
	assert.Equal(t, "4.40", f.Ratio(dec("4.395")))
	assert.Equal(t, "21.76", f.Ratio(dec("21.76")))
	assert.Equal(t, "3.85%", f.Percent(dec("0.0385")))
	assert.Equal(t, "15.80%", f.Percent(dec("0.158")))
	assert.Equal(t, NA, f.Percent(nil))
	assert.Equal(t, "4,081,733", f.Count(&vol))
	assert.Equal(t, NA, f.Count(nil))
	assert.Equal(t, "4.081.733", NewFormatter(language.German).Count(&vol))
}

func TestFormatter_RowWithoutQuote(t *testing.T) {
	t.Parallel()

	r := NewFormatter(language.English).Row(provider.NewSymbol("RY.TRT", "Royal Bank"), nil, false)

	assert.Equal(t, "RY.TRT", r.Ticker)
	assert.Equal(t, "Royal Bank", r.Name)
	assert.Equal(t, provider.Secondary, r.Market)
	for _, v := range []string{r.PERatio, r.PEGRatio, r.PriceToSales, r.DividendYield, r.OperatingMargin, r.DebtToEquity, r.Price, r.Volume, r.LatestTradingDay} {
		assert.Equal(t, NA, v)
	}
	assert.Equal(t, score.DataUnavailable, r.Recommendation)
	assert.Empty(t, r.Source)
}

func TestFormatter_RowSecondaryQuote(t *testing.T) {
	t.Parallel()

	vol := int64(4081733)
	q := &provider.Quote{Symbol: "RY.TRT", Source: "av", Price: dec("154.6200"), Volume: &vol, LatestTradingDay: "2024-07-19"}
	r := NewFormatter(language.English).Row(provider.NewSymbol("RY.TRT", ""), q, true)

	assert.Equal(t, "154.62", r.Price)
	assert.Equal(t, "4,081,733", r.Volume)
	assert.Equal(t, "2024-07-19", r.LatestTradingDay)
	assert.Equal(t, score.InsufficientData, r.Recommendation)
	assert.Equal(t, "av", r.Source)
	assert.True(t, r.Cached)
}
