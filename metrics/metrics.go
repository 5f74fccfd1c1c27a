// Package metrics holds the Prometheus collectors of the API and the fiber
// glue that exposes them.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fantasy12/apperr"
)

const namespace = "fantasy12"

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	HTTPLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"method", "route"})

	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter, by rule",
	}, []string{"rule"})

	TicketsPlaced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tickets_placed_total",
		Help:      "Tickets placed",
	})

	Payments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_total",
		Help:      "Chip purchases by outcome",
	}, []string{"status"})

	PowerUpsSold = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "powerups_sold_total",
		Help:      "Power-ups bought, by item",
	}, []string{"item"})

	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Scheduled job runs by job and result",
	}, []string{"job", "result"})
)

func init() {
	prometheus.MustRegister(
		HTTPRequests,
		HTTPLatency,
		RateLimited,
		TicketsPlaced,
		Payments,
		PowerUpsSold,
		JobRuns,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// Middleware records request counts and latency. Routes are labelled by
// their pattern so path parameters do not explode cardinality.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		route := c.Route().Path
		HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		HTTPLatency.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// statusOf predicts the status the error handler will write for err.
func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperr.KindOf(err).Status()
}
