// Package obs holds the console's Prometheus metrics.
package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LoginsTotal counts login outcomes: success, failed, locked.
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_logins_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// CodeDeliveriesTotal counts one-time code deliveries per channel and outcome.
	CodeDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_code_deliveries_total",
			Help: "One-time code deliveries by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)

	// WorkerCyclesTotal counts background worker passes per worker name.
	WorkerCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_worker_cycles_total",
			Help: "Background worker cycles by worker.",
		},
		[]string{"worker"},
	)

	// ExpiryNoticesTotal counts password-expiry notices by outcome.
	ExpiryNoticesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_expiry_notices_total",
			Help: "Password-expiry notices by outcome.",
		},
		[]string{"outcome"},
	)
)

// Init registers the console metrics in the default registry.
func Init() {
	prometheus.MustRegister(LoginsTotal, CodeDeliveriesTotal, WorkerCyclesTotal, ExpiryNoticesTotal)
}

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
