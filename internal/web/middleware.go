package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-webpush/pkg/interfaces/logger"
)

// RequestLogger logs one line per request through the module logger.
func RequestLogger(l logger.Logger) fiber.Handler {
	if l == nil {
		l = &logger.Nop{}
	}
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var ferr *fiber.Error
			if errors.As(err, &ferr) {
				status = ferr.Code
			}
		}
		fields := []logger.Field{
			logger.F("method", c.Method()),
			logger.F("path", c.Path()),
			logger.F("status", status),
			logger.F("took", time.Since(started)),
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			l.Error("http request", fields...)
		case status >= fiber.StatusBadRequest:
			l.Warn("http request", fields...)
		default:
			l.Info("http request", fields...)
		}
		return err
	}
}
