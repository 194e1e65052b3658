package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockreport/internal/provider"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoadFrom_Defaults(t *testing.T) {
	t.Setenv("ALPHAVANTAGE_API_KEY", "")
	t.Setenv("PORT", "")

	cfg, err := LoadFrom(t.TempDir(), "")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 25, cfg.Report.CallLimit)
	assert.Equal(t, time.Second, cfg.Report.Pause)
	assert.Equal(t, 24*time.Hour, cfg.Report.CacheTTL)
	assert.Equal(t, []string{".TRT"}, cfg.Report.SecondarySuffixes)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 2*time.Minute, cfg.Server.ReportTimeout)
	assert.Equal(t, 60, cfg.Server.RateLimit)
	assert.Equal(t, map[string]string{".TRT": ".TO"}, cfg.Providers.Yahoo.SuffixMap())
	assert.Nil(t, cfg.Providers.AlphaVantage.SuffixMap())

	syms := cfg.SymbolList()
	require.Len(t, syms, 10)
	assert.Equal(t, provider.Primary, syms[0].Market)
	assert.Equal(t, provider.Secondary, syms[len(syms)-1].Market)
}

func TestLoadFrom_Layering(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
report:
  call_limit: 10
  workers: 2
symbols:
  - { ticker: IBM, name: IBM }
  - { ticker: RY.TO, name: Royal Bank }
`)
	writeFile(t, dir, "prod.yaml", `
report:
  workers: 4
  secondary_suffixes: [".TO"]
`)
	t.Setenv("APP_REPORT__CALL_LIMIT", "7")
	t.Setenv("APP_LOG__LEVEL", "debug")
	t.Setenv("ALPHAVANTAGE_API_KEY", "env-key")
	t.Setenv("PORT", "9090")

	cfg, err := LoadFrom(dir, "prod")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 7, cfg.Report.CallLimit, "env beats files")
	assert.Equal(t, 4, cfg.Report.Workers, "profile beats base")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "env-key", cfg.Providers.AlphaVantage.APIKey)
	assert.Equal(t, 9090, cfg.Server.Port)

	syms := cfg.SymbolList()
	require.Len(t, syms, 2)
	assert.Equal(t, provider.Secondary, syms[1].Market)

	got, ok := cfg.Symbol("ry.to")
	require.True(t, ok)
	assert.Equal(t, "Royal Bank", got.Name)
	_, ok = cfg.Symbol("MSFT")
	assert.False(t, ok)
}

func TestLoadFrom_BadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "report: [unterminated")

	_, err := LoadFrom(dir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading base config")
}

func TestValidate_Errors(t *testing.T) {
	t.Setenv("ALPHAVANTAGE_API_KEY", "")

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"redis without addr", func(c *Config) { c.Cache.Backend = "redis" }, "cache.redisaddr is required when Backend redis"},
		{"firestore without project", func(c *Config) { c.Cache.Backend = "firestore" }, "cache.firestoreproject is required"},
		{"unknown provider", func(c *Config) { c.Report.PrimaryProvider = "bloomberg" }, "report.primaryprovider must be one of"},
		{"zero call limit", func(c *Config) { c.Report.CallLimit = 0 }, "report.calllimit is required"},
		{"too many workers", func(c *Config) { c.Report.Workers = 64 }, "report.workers must be at most 16"},
		{"no symbols", func(c *Config) { c.Symbols = nil }, "symbols is required"},
		{"blank ticker", func(c *Config) { c.Symbols[0].Ticker = "" }, "symbols[0].ticker is required"},
		{"bad base url", func(c *Config) { c.Providers.Yahoo.BaseURL = "not a url" }, "providers.yahoo.baseurl must be a valid URL"},
		{"suffix without target", func(c *Config) { c.Providers.Yahoo.TickerSuffixes[0].To = "" }, "providers.yahoo.tickersuffixes[0].to is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFrom(t.TempDir(), "")
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_RepositoryConfigs(t *testing.T) {
	t.Setenv("ALPHAVANTAGE_API_KEY", "")

	cfg, err := LoadFrom(filepath.Join("..", "..", "configs"), "dev")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "pretty", cfg.Log.Format)
	assert.Equal(t, map[string]string{".TRT": ".TO"}, cfg.Providers.Yahoo.SuffixMap())
}
