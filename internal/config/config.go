// Package config loads layered configuration with koanf: defaults, then
// configs/base.yaml, then configs/<profile>.yaml, then APP_ environment
// variables, then the provider credential variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"stockreport/internal/provider"
)

const (
	DefaultDir       = "configs"
	DefaultPort      = 8080
	DefaultCallLimit = 25
	DefaultWorkers   = 1

	// Provider names accepted by report.*_provider.
	AlphaVantage = "alphavantage"
	Yahoo        = "yahoo"
)

type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Report    ReportConfig    `koanf:"report"    validate:"required"`
	Cache     CacheConfig     `koanf:"cache"     validate:"required"`
	Providers ProvidersConfig `koanf:"providers" validate:"required"`
	Symbols   []SymbolConfig  `koanf:"symbols"   validate:"required,min=1,dive"`
}

type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev prod test"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"             validate:"required"`
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	ReportTimeout   time.Duration `koanf:"report_timeout"   validate:"required,min=1s"`
	CORSOrigins     string        `koanf:"cors_origins"`
	// RateLimit caps /api requests per client per minute; 0 disables it.
	RateLimit       int           `koanf:"rate_limit"       validate:"min=0"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

type ReportConfig struct {
	CallLimit         int           `koanf:"call_limit"         validate:"required,min=1"`
	Pause             time.Duration `koanf:"pause"              validate:"min=0"`
	CacheTTL          time.Duration `koanf:"cache_ttl"          validate:"required,min=1s"`
	Workers           int           `koanf:"workers"            validate:"required,min=1,max=16"`
	HistoryDays       int           `koanf:"history_days"       validate:"required,min=1,max=365"`
	SecondarySuffixes []string      `koanf:"secondary_suffixes" validate:"required,min=1,dive,required"`
	PrimaryProvider   string        `koanf:"primary_provider"   validate:"required,oneof=alphavantage yahoo"`
	SecondaryProvider string        `koanf:"secondary_provider" validate:"required,oneof=alphavantage yahoo"`
	HistoryProvider   string        `koanf:"history_provider"   validate:"required,oneof=alphavantage yahoo"`
	Locale            string        `koanf:"locale"             validate:"required,bcp47_language_tag"`
}

type CacheConfig struct {
	Backend             string `koanf:"backend"              validate:"required,oneof=memory redis firestore"`
	RedisAddr           string `koanf:"redis_addr"           validate:"required_if=Backend redis"`
	RedisPassword       string `koanf:"redis_password"`
	RedisDB             int    `koanf:"redis_db"             validate:"min=0,max=15"`
	RedisPrefix         string `koanf:"redis_prefix"`
	FirestoreProject    string `koanf:"firestore_project"    validate:"required_if=Backend firestore"`
	FirestoreCollection string `koanf:"firestore_collection"`
}

type ProvidersConfig struct {
	AlphaVantage ProviderConfig `koanf:"alphavantage" validate:"required"`
	Yahoo        ProviderConfig `koanf:"yahoo"        validate:"required"`
}

type ProviderConfig struct {
	BaseURL    string        `koanf:"base_url"    validate:"required,url"`
	APIKey     string        `koanf:"api_key"`
	RequireKey bool          `koanf:"require_key"`
	Timeout    time.Duration `koanf:"timeout"     validate:"required,min=100ms"`
	RPM        int           `koanf:"rpm"         validate:"min=0"`
	Burst      int           `koanf:"burst"       validate:"required,min=1"`

	// MinInterval spaces call starts when RPM is 0.
	MinInterval time.Duration `koanf:"min_interval" validate:"min=0"`

	// TickerSuffixes maps configured ticker suffixes to the provider's own
	// listing suffix. Suffixes contain the key delimiter, so this is a list.
	TickerSuffixes []SuffixRewrite `koanf:"ticker_suffixes" validate:"dive"`
}

type SuffixRewrite struct {
	From string `koanf:"from" validate:"required"`
	To   string `koanf:"to"   validate:"required"`
}

// SuffixMap returns TickerSuffixes keyed by the configured suffix.
func (p ProviderConfig) SuffixMap() map[string]string {
	if len(p.TickerSuffixes) == 0 {
		return nil
	}
	m := make(map[string]string, len(p.TickerSuffixes))
	for _, r := range p.TickerSuffixes {
		m[r.From] = r.To
	}
	return m
}

type SymbolConfig struct {
	Ticker string `koanf:"ticker" validate:"required"`
	Name   string `koanf:"name"`
}

// SymbolList returns the configured symbols in declaration order with
// markets classified by the secondary suffixes.
func (c *Config) SymbolList() []provider.Symbol {
	out := make([]provider.Symbol, len(c.Symbols))
	for i, s := range c.Symbols {
		out[i] = provider.NewSymbol(s.Ticker, s.Name, c.Report.SecondarySuffixes...)
	}
	return out
}

// Symbol looks a configured symbol up by ticker, case-insensitively.
func (c *Config) Symbol(ticker string) (provider.Symbol, bool) {
	for _, s := range c.SymbolList() {
		if strings.EqualFold(s.Ticker, ticker) {
			return s, true
		}
	}
	return provider.Symbol{}, false
}

func defaultSymbols() []any {
	list := [][2]string{
		{"AAPL", "Apple Inc."},
		{"MSFT", "Microsoft Corporation"},
		{"IBM", "International Business Machines"},
		{"JNJ", "Johnson & Johnson"},
		{"KO", "The Coca-Cola Company"},
		{"PG", "Procter & Gamble"},
		{"RY.TRT", "Royal Bank of Canada"},
		{"TD.TRT", "Toronto-Dominion Bank"},
		{"ENB.TRT", "Enbridge Inc."},
		{"BCE.TRT", "BCE Inc."},
	}
	out := make([]any, len(list))
	for i, s := range list {
		out[i] = map[string]any{"ticker": s[0], "name": s[1]}
	}
	return out
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":        "stockreport",
		"app.version":     "dev",
		"app.environment": "local",

		"server.host":             "0.0.0.0",
		"server.port":             DefaultPort,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "120s",
		"server.shutdown_timeout": "10s",
		"server.report_timeout":   "2m",
		"server.cors_origins":     "*",
		"server.rate_limit":       60,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/stockreport.log",
		"log.file.max_size":    100,
		"log.file.max_backups": 3,
		"log.file.max_age":     28,
		"log.file.compress":    true,

		"report.call_limit":         DefaultCallLimit,
		"report.pause":              "1s",
		"report.cache_ttl":          "24h",
		"report.workers":            DefaultWorkers,
		"report.history_days":       30,
		"report.secondary_suffixes": []string{provider.DefaultSecondarySuffix},
		"report.primary_provider":   AlphaVantage,
		"report.secondary_provider": AlphaVantage,
		"report.history_provider":   AlphaVantage,
		"report.locale":             "en-US",

		"cache.backend":              "memory",
		"cache.redis_addr":           "",
		"cache.redis_db":             0,
		"cache.redis_prefix":         "stockreport:",
		"cache.firestore_project":    "",
		"cache.firestore_collection": "stockreport_cache",

		"providers.alphavantage.base_url":    "https://www.alphavantage.co/query",
		"providers.alphavantage.require_key": true,
		"providers.alphavantage.timeout":     "15s",
		"providers.alphavantage.rpm":         5,
		"providers.alphavantage.burst":       1,
		"providers.yahoo.base_url":           "https://query2.finance.yahoo.com",
		"providers.yahoo.require_key":        false,
		"providers.yahoo.timeout":            "15s",
		"providers.yahoo.rpm":                60,
		"providers.yahoo.burst":              2,
		"providers.yahoo.ticker_suffixes": []any{
			map[string]any{"from": provider.DefaultSecondarySuffix, "to": ".TO"},
		},

		"symbols": defaultSymbols(),
	}
}

// Load reads configuration from DefaultDir.
func Load(profile string) (*Config, error) {
	return LoadFrom(DefaultDir, profile)
}

// LoadFrom layers (lowest to highest precedence) defaults, dir/base.yaml,
// dir/<profile>.yaml and APP_ environment variables. Nested keys use a
// double underscore: APP_REPORT__CALL_LIMIT sets report.call_limit.
// ALPHAVANTAGE_API_KEY, YAHOO_API_KEY and PORT override last.
func LoadFrom(dir, profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}
	if err := loadFileIfExists(k, filepath.Join(dir, "base.yaml")); err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}
	if profile != "" {
		if err := loadFileIfExists(k, filepath.Join(dir, profile+".yaml")); err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	err := k.Load(env.Provider("APP_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "APP_")), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	applySecretEnv(&cfg)
	return &cfg, nil
}

// applySecretEnv lets credentials come from the conventional variable names
// so they never need to live in a config file.
func applySecretEnv(cfg *Config) {
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.Providers.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("YAHOO_API_KEY"); v != "" {
		cfg.Providers.Yahoo.APIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
}

func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return k.Load(file.Provider(path), yaml.Parser())
}
