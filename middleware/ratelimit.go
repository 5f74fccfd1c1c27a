package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"fantasy12/apperr"
	"fantasy12/metrics"
	"fantasy12/ratelimit"
)

// ClientIdentity keys rate limits by address and user agent.
func ClientIdentity(c *fiber.Ctx) string {
	return c.IP() + "-" + c.Get(fiber.HeaderUserAgent)
}

// RateLimit enforces the named rule. When the counter store fails the
// request is let through and the failure logged.
func RateLimit(l *ratelimit.Limiter, ruleName string) fiber.Handler {
	rule, ok := l.Rule(ruleName)
	if !ok {
		panic("middleware: unknown rate limit rule " + ruleName)
	}
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		identity := ClientIdentity(c)
		res, err := l.Allow(ctx, identity, rule.Name)
		if err != nil {
			log.WithField("rule", rule.Name).WithError(err).Warn("rate limiter unavailable")
			return c.Next()
		}

		now := time.Now()
		c.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
		if !res.Allowed {
			retry := res.RetryAfter(now)
			metrics.RateLimited.WithLabelValues(rule.Name).Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
			return apperr.RateLimited(rule.Message, retry)
		}

		err = c.Next()
		if rule.SkipSuccessful && responseStatus(c, err) < fiber.StatusBadRequest {
			if rerr := l.Release(ctx, identity, rule.Name); rerr != nil {
				log.WithField("rule", rule.Name).WithError(rerr).Warn("rate limit release failed")
			}
		}
		return err
	}
}

// responseStatus is the status the client will see once err, if any, has
// gone through the error handler.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperr.KindOf(err).Status()
}
