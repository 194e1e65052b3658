// Command server exposes the stock report over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"stockreport/internal/api"
	"stockreport/internal/app"
	"stockreport/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	profile := flag.String("profile", os.Getenv("APP_PROFILE"), "config profile layered over configs/base.yaml")
	flag.Parse()

	cfg, err := app.LoadConfig(*profile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, logCloser := app.NewLogger(cfg)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	a, err := app.New(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("closing backends", slog.Any("error", err))
		}
	}()

	srv := api.New(api.Config{
		AppName:       cfg.App.Name,
		Version:       cfg.App.Version,
		CORSOrigins:   cfg.Server.CORSOrigins,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		ReportTimeout: cfg.Server.ReportTimeout,
		RateLimit:     cfg.Server.RateLimit,
		Symbols:       a.Symbols,
	}, a.Builder, m, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.String("addr", cfg.Server.Addr()),
			slog.String("environment", cfg.App.Environment),
			slog.Int("symbols", len(a.Symbols)),
		)
		errCh <- srv.Listen(cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", slog.Duration("timeout", cfg.Server.ShutdownTimeout))
	if err := srv.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
