// Package logging builds the process slog.Logger: JSON, text or pretty
// console output with secret redaction, plus an optional rolling JSON file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging configuration.
type Config struct {
	Level   string // debug, info, warn, error
	Format  string // json, text, pretty
	Service string
	Version string
	File    FileConfig
}

// FileConfig enables a rolling JSON log file next to the console output.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New creates the logger writing to stderr, plus the rolling file when
// configured. The returned closer flushes the file and is never nil.
func New(cfg Config) (*slog.Logger, io.Closer) {
	console := consoleHandler(cfg, os.Stderr)
	if cfg.File.Path == "" {
		return withDefaults(slog.New(console), cfg), nopCloser{}
	}

	roll := &lumberjack.Logger{
		Filename:   cfg.File.Path,
		MaxSize:    cfg.File.MaxSizeMB,
		MaxBackups: cfg.File.MaxBackups,
		MaxAge:     cfg.File.MaxAgeDays,
		Compress:   cfg.File.Compress,
	}
	file := slog.NewJSONHandler(roll, handlerOptions(cfg))
	return withDefaults(slog.New(NewMultiHandler(console, file)), cfg), roll
}

// NewWithWriter creates a console logger writing to w.
func NewWithWriter(cfg Config, w io.Writer) *slog.Logger {
	return withDefaults(slog.New(consoleHandler(cfg, w)), cfg)
}

func withDefaults(l *slog.Logger, cfg Config) *slog.Logger {
	if cfg.Service != "" {
		l = l.With(slog.String("service", cfg.Service))
	}
	if cfg.Version != "" {
		l = l.With(slog.String("version", cfg.Version))
	}
	return l
}

func handlerOptions(cfg Config) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level:       ParseLevel(cfg.Level),
		ReplaceAttr: NewReplaceAttr(),
	}
}

func consoleHandler(cfg Config, w io.Writer) slog.Handler {
	switch strings.ToLower(cfg.Format) {
	case "text":
		return slog.NewTextHandler(w, handlerOptions(cfg))
	case "pretty":
		pretty := charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(ParseLevel(cfg.Level)),
			ReportTimestamp: true,
		})
		return &redactHandler{next: pretty, replace: NewReplaceAttr()}
	default:
		return slog.NewJSONHandler(w, handlerOptions(cfg))
	}
}

// ParseLevel converts a level name to slog.Level; unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
