package app

import (
	"io"
	"log/slog"

	"stockreport/internal/config"
	"stockreport/internal/logging"
)

// NewLogger builds the process logger from cfg and installs it as the slog
// default. The closer flushes the rolling file, if any.
func NewLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	lc := logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
	}
	if f := cfg.Log.File; f.Enabled {
		lc.File = logging.FileConfig{
			Path:       f.Path,
			MaxSizeMB:  f.MaxSizeMB,
			MaxBackups: f.MaxBackups,
			MaxAgeDays: f.MaxAgeDays,
			Compress:   f.Compress,
		}
	}
	logger, closer := logging.New(lc)
	slog.SetDefault(logger)
	return logger, closer
}

// LoadConfig loads and validates the configuration for profile.
func LoadConfig(profile string) (*config.Config, error) {
	cfg, err := config.Load(profile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
