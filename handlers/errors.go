package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"fantasy12/apperr"
)

// ErrorHandler renders every error as {"error": msg}. Outside production
// the wrapped cause is added as "details".
func ErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		msg := "internal server error"
		details := ""

		var appErr *apperr.Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &appErr):
			status = appErr.Kind.Status()
			msg = appErr.Msg
			if appErr.Err != nil {
				details = appErr.Err.Error()
			}
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			msg = fiberErr.Message
		default:
			details = err.Error()
		}

		if status >= fiber.StatusInternalServerError {
			log.WithFields(log.Fields{
				"method": c.Method(),
				"path":   c.Path(),
			}).WithError(err).Error("request failed")
		}

		body := fiber.Map{"error": msg}
		if appErr != nil && appErr.Kind == apperr.KindRateLimited {
			body["retryAfter"] = appErr.RetryAfter
		}
		if !production && details != "" {
			body["details"] = details
		}
		return c.Status(status).JSON(body)
	}
}

// NotFound answers unmatched routes.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":  "route not found",
		"path":   c.Path(),
		"method": c.Method(),
	})
}

// parseBody decodes the JSON body into v.
func parseBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}
