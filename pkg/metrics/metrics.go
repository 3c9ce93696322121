package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Contact pipeline metrics
	SubmissionsTotal    *prometheus.CounterVec
	GateRejectionsTotal *prometheus.CounterVec

	// Email delivery metrics
	EmailsSent              prometheus.Counter
	EmailsFailed            prometheus.Counter
	EmailsPermanentlyFailed prometheus.Counter
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		SubmissionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contact_submissions_total",
				Help: "Contact form submissions by classification outcome",
			},
			[]string{"outcome"}, // new | spam
		),
		GateRejectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contact_gate_rejections_total",
				Help: "Submissions rejected before scoring",
			},
			[]string{"reason"}, // rate_limited | blocked
		),
		EmailsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Queued emails delivered successfully",
		}),
		EmailsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emails_failed_total",
			Help: "Failed delivery attempts (including retried ones)",
		}),
		EmailsPermanentlyFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emails_permanently_failed_total",
			Help: "Queue rows that exhausted every delivery attempt",
		}),
	}
}

// Middleware returns an Echo middleware that records request metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			labels := []string{c.Request().Method, c.Path(), strconv.Itoa(status)}
			m.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
			m.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())

			return err
		}
	}
}
