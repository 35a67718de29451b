// Package metrics exposes Prometheus counters and histograms for billing
// reconciliation, webhook handling, gateway calls and HTTP traffic.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	reconciliationsTotal   *prometheus.CounterVec
	webhooksTotal          *prometheus.CounterVec
	gatewayRequestDuration *prometheus.HistogramVec
	documentJobsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
)

func initMetrics() {
	reconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simplifydocs",
			Subsystem: "billing",
			Name:      "reconciliations_total",
			Help:      "Ledger reconciliations by trigger and outcome.",
		},
		[]string{"trigger", "outcome"},
	)

	webhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simplifydocs",
			Subsystem: "billing",
			Name:      "webhooks_total",
			Help:      "Webhook deliveries by event and result.",
		},
		[]string{"event", "result"},
	)

	gatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "simplifydocs",
			Subsystem: "billing",
			Name:      "gateway_request_duration_seconds",
			Help:      "Payment gateway call latency by operation and outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "outcome"},
	)

	documentJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simplifydocs",
			Subsystem: "documents",
			Name:      "jobs_total",
			Help:      "Document summarize and ask jobs by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "simplifydocs",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration by method, route and status.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route", "status"},
	)

	prometheus.MustRegister(reconciliationsTotal, webhooksTotal, gatewayRequestDuration, documentJobsTotal, httpRequestDuration)
}

// RecordReconciliation counts one reconciliation attempt.
func RecordReconciliation(trigger, outcome string) {
	metricsOnce.Do(initMetrics)
	reconciliationsTotal.WithLabelValues(trigger, outcome).Inc()
}

// RecordWebhook counts one webhook delivery.
func RecordWebhook(event, result string) {
	metricsOnce.Do(initMetrics)
	webhooksTotal.WithLabelValues(event, result).Inc()
}

// ObserveGatewayRequest records the latency of one gateway call.
func ObserveGatewayRequest(operation, outcome string, elapsed time.Duration) {
	metricsOnce.Do(initMetrics)
	gatewayRequestDuration.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())
}

// RecordDocumentJob counts one document job.
func RecordDocumentJob(kind, outcome string) {
	metricsOnce.Do(initMetrics)
	documentJobsTotal.WithLabelValues(kind, outcome).Inc()
}

// EchoMiddleware records request latency labelled by the matched route.
func EchoMiddleware() echo.MiddlewareFunc {
	metricsOnce.Do(initMetrics)
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
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			httpRequestDuration.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
