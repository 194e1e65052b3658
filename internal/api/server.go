// Package api serves reports, history and cache control to the presentation
// layer over JSON.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"golang.org/x/sync/singleflight"

	"stockreport/internal/metrics"
	"stockreport/internal/provider"
	"stockreport/internal/report"
)

// Service is what the handlers need from the report builder.
type Service interface {
	Build(ctx context.Context, symbols []provider.Symbol) *report.Report
	History(ctx context.Context, sym provider.Symbol) ([]provider.PricePoint, error)
	ClearCache(ctx context.Context) error
}

type Config struct {
	AppName       string
	Version       string
	CORSOrigins   string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	ReportTimeout time.Duration
	// RateLimit caps API requests per client per minute; 0 disables it.
	RateLimit int
	Symbols   []provider.Symbol
}

type Server struct {
	cfg     Config
	svc     Service
	metrics *metrics.Collector
	logger  *slog.Logger
	started time.Time

	reports singleflight.Group
	history singleflight.Group
}

// New builds the fiber app with its middleware stack and routes.
func New(cfg Config, svc Service, m *metrics.Collector, logger *slog.Logger) *fiber.App {
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = 2 * time.Minute
	}
	if cfg.CORSOrigins == "" {
		cfg.CORSOrigins = "*"
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, svc: svc, metrics: m, logger: logger, started: time.Now()}

	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(s.logRequests)
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
		MaxAge:       3600,
	}))

	app.Get("/health", s.health)
	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	v1 := app.Group("/api")
	if cfg.RateLimit > 0 {
		v1.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return writeError(c, fiber.StatusTooManyRequests, "rate limit exceeded", "try again later")
			},
		}))
	}
	v1.Get("/symbols", s.symbols)
	v1.Get("/report", s.buildReport)
	v1.Get("/history/:ticker", s.historyFor)
	v1.Delete("/cache", s.clearCache)

	return app
}
