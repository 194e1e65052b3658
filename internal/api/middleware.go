package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"stockreport/internal/logging"
)

// logRequests tags the request context logger with the request id, then
// logs and counts the request once handled.
func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	rid, _ := c.Locals("requestid").(string)
	ctx := logging.WithRequestID(logging.WithContext(c.UserContext(), s.logger), rid)
	c.SetUserContext(ctx)

	err := c.Next()
	if err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	status := c.Response().StatusCode()
	elapsed := time.Since(start)
	route := c.Route().Path
	if s.metrics != nil {
		s.metrics.ObserveHTTP(c.Method(), route, status, elapsed)
	}
	level := slog.LevelInfo
	if status >= 500 {
		level = slog.LevelError
	}
	logging.FromContext(ctx).Log(ctx, level, "request",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.Int("status", status),
		slog.Duration("latency", elapsed),
	)
	return nil
}
