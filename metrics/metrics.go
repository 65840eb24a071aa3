package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors; it is what /metrics serves.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "minerfix",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "minerfix",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	paymentsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "minerfix",
			Subsystem: "billing",
			Name:      "payments_total",
			Help:      "Payments processed, by outcome.",
		},
		[]string{"outcome"},
	)

	auditWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "minerfix",
			Subsystem: "audit",
			Name:      "writes_total",
			Help:      "Audit log writes, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		paymentsApplied,
		auditWrites,
	)
}

// Middleware records request count and latency per route template.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else if status < 400 {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

func PaymentApplied()  { paymentsApplied.WithLabelValues("applied").Inc() }
func PaymentRejected() { paymentsApplied.WithLabelValues("rejected").Inc() }
func PaymentReversed() { paymentsApplied.WithLabelValues("reversed").Inc() }

func AuditWritten() { auditWrites.WithLabelValues("ok").Inc() }
func AuditFailed()  { auditWrites.WithLabelValues("failed").Inc() }
