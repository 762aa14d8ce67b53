package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/card-ledger/card_ledger/internal/apperr"
)

// Audit emits one structured record per request. Domain failures are logged
// with their kind; only server faults are logged at error level.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Duration("duration", time.Since(start)),
		}
		if requestID := RequestIDFrom(c); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if err == nil {
			attrs = append(attrs, slog.Int("status", c.Response().StatusCode()))
			logger.Info("request completed", attrs...)
			return nil
		}

		if de, ok := apperr.As(err); ok {
			attrs = append(attrs, slog.Int("status", de.Code), slog.String("kind", string(de.Kind)), slog.String("error", de.Message))
			if de.Kind != apperr.KindUnclassified {
				logger.Warn("request failed", attrs...)
				return err
			}
		} else {
			attrs = append(attrs, slog.Any("error", err))
		}
		logger.Error("request failed", attrs...)
		return err
	}
}
