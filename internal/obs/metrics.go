package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Client-side operation metrics: every provider action (login, fetch,
// cancel, ...) is counted and timed regardless of which screen triggered it.
var (
	opTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tienda_client_operations_total",
			Help: "Total number of client operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	opDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tienda_client_operation_duration_seconds",
			Help:    "Client operation latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Init registers metrics in the default registry.
func Init() {
	prometheus.MustRegister(opTotal, opDuration)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveOperation records one finished provider operation.
func ObserveOperation(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	opTotal.WithLabelValues(operation, outcome).Inc()
	opDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
