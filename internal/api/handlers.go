package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"stockreport/internal/provider"
	"stockreport/internal/report"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

func writeError(c *fiber.Ctx, code int, msg, detail string) error {
	return c.Status(code).JSON(ErrorResponse{Error: msg, Message: detail, Code: code})
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return writeError(c, code, err.Error(), "")
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(healthResponse{
		Status:  "ok",
		Version: s.cfg.Version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	})
}

type symbolsResponse struct {
	Symbols []provider.Symbol `json:"symbols"`
}

func (s *Server) symbols(c *fiber.Ctx) error {
	return c.JSON(symbolsResponse{Symbols: s.cfg.Symbols})
}

// buildReport runs one build. Concurrent requests share a single run so repeated
// clicks never spend the call budget twice.
func (s *Server) buildReport(c *fiber.Ctx) error {
	ctx := c.UserContext()
	v, _, shared := s.reports.Do("report", func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ReportTimeout)
		defer cancel()
		return s.svc.Build(runCtx, s.cfg.Symbols), nil
	})
	if shared {
		c.Set("X-Report-Shared", "true")
	}
	return c.JSON(v.(*report.Report))
}

type historyResponse struct {
	Symbol provider.Symbol       `json:"symbol"`
	Points []provider.PricePoint `json:"points"`
}

func (s *Server) lookup(ticker string) (provider.Symbol, bool) {
	for _, sym := range s.cfg.Symbols {
		if strings.EqualFold(sym.Ticker, ticker) {
			return sym, true
		}
	}
	return provider.Symbol{}, false
}

func (s *Server) historyFor(c *fiber.Ctx) error {
	ticker := strings.TrimSpace(c.Params("ticker"))
	sym, ok := s.lookup(ticker)
	if !ok {
		return writeError(c, fiber.StatusNotFound, "unknown symbol", ticker)
	}

	ctx := c.UserContext()
	v, err, _ := s.history.Do(sym.Ticker, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return s.svc.History(runCtx, sym)
	})
	if err != nil {
		code, msg := historyStatus(err)
		return writeError(c, code, msg, err.Error())
	}
	pts, _ := v.([]provider.PricePoint)
	if pts == nil {
		pts = []provider.PricePoint{}
	}
	return c.JSON(historyResponse{Symbol: sym, Points: pts})
}

func historyStatus(err error) (int, string) {
	switch {
	case errors.Is(err, report.ErrNoHistory):
		return fiber.StatusNotImplemented, "history not available"
	case errors.Is(err, provider.ErrMissingCredential):
		return fiber.StatusServiceUnavailable, "provider credential not configured"
	case errors.Is(err, provider.ErrRateLimited):
		return fiber.StatusServiceUnavailable, "provider rate limit reached"
	case errors.Is(err, provider.ErrEmptyResponse):
		return fiber.StatusNotFound, "no history for symbol"
	default:
		return fiber.StatusBadGateway, "history fetch failed"
	}
}

func (s *Server) clearCache(c *fiber.Ctx) error {
	if err := s.svc.ClearCache(c.UserContext()); err != nil {
		return writeError(c, fiber.StatusInternalServerError, "cache clear failed", err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}
