package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the HTTP and domain collectors. A nil *Metrics is valid and
// records nothing, which keeps services usable without a registry.
type Metrics struct {
	RequestCounter           *prometheus.CounterVec
	RequestDurationHistogram *prometheus.HistogramVec

	VerificationsTotal  *prometheus.CounterVec
	BulkSubmissions     prometheus.Counter
	BulkDecisionsTotal  *prometheus.CounterVec
	CodesIssuedTotal    *prometheus.CounterVec
	CodeCollisionsTotal prometheus.Counter
}

// New registers every collector on reg using prefix as metric namespace.
func New(reg prometheus.Registerer, prefix string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDurationHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		VerificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_verifications_total",
				Help: "Verification attempts recorded in the scan ledger, by outcome",
			},
			[]string{"outcome"},
		),
		BulkSubmissions: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_bulk_submissions_total",
			Help: "Bulk requests accepted into the approval queue",
		}),
		BulkDecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_bulk_decisions_total",
				Help: "Bulk request decisions, by action and result",
			},
			[]string{"action", "result"},
		),
		CodesIssuedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_codes_issued_total",
				Help: "QR codes committed to the registry, by source",
			},
			[]string{"source"},
		),
		CodeCollisionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_code_collisions_total",
			Help: "Code batches regenerated after a uniqueness violation",
		}),
	}
}

func (m *Metrics) ObserveVerification(outcome string) {
	if m == nil {
		return
	}
	m.VerificationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSubmission() {
	if m == nil {
		return
	}
	m.BulkSubmissions.Inc()
}

func (m *Metrics) ObserveDecision(action, result string) {
	if m == nil {
		return
	}
	m.BulkDecisionsTotal.WithLabelValues(action, result).Inc()
}

func (m *Metrics) ObserveCodesIssued(source string, n int) {
	if m == nil {
		return
	}
	m.CodesIssuedTotal.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) ObserveCollision() {
	if m == nil {
		return
	}
	m.CodeCollisionsTotal.Inc()
}

// Middleware records request count and latency, labelled by route pattern.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		path := c.Route().Path
		statusStr := strconv.Itoa(status)

		m.RequestCounter.WithLabelValues(c.Method(), path, statusStr).Inc()
		m.RequestDurationHistogram.WithLabelValues(c.Method(), path, statusStr).Observe(time.Since(start).Seconds())

		return err
	}
}
