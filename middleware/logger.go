package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// RequestLogger writes one structured line per request.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := responseStatus(c, err)

		entry := log.WithFields(log.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"duration":   time.Since(start).String(),
			"ip":         c.IP(),
			"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
		})
		switch {
		case status >= fiber.StatusInternalServerError:
			entry.Error("request failed")
		case status >= fiber.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request served")
		}
		return err
	}
}
