package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"fantasy12/apperr"
	"fantasy12/auth"
)

const (
	LocalUserID    = "user_id"
	LocalUserEmail = "user_email"
	LocalUser      = "user"
)

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate requires a valid bearer token and exposes its claims through
// c.Locals. The user row is not loaded here.
func Authenticate(tokens auth.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return apperr.Unauthorized("access token required")
		}
		claims, err := tokens.Verify(token)
		if errors.Is(err, auth.ErrTokenExpired) {
			return apperr.Unauthorized("token expired")
		}
		if err != nil {
			log.WithField("path", c.Path()).WithError(err).Debug("rejected bearer token")
			return apperr.Unauthorized("invalid token")
		}
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalUserEmail, claims.Email)
		return c.Next()
	}
}

// OptionalAuth sets the caller identity when a valid token is present and
// lets anonymous requests through.
func OptionalAuth(tokens auth.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := bearerToken(c); token != "" {
			if claims, err := tokens.Verify(token); err == nil {
				c.Locals(LocalUserID, claims.UserID)
				c.Locals(LocalUserEmail, claims.Email)
			}
		}
		return c.Next()
	}
}

// UserID returns the authenticated caller, or "" for anonymous requests.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}
