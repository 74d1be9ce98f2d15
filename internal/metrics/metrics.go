package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// SolveDuration tracks end-to-end solve latencies by objective
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "solve_duration_seconds", Help: "Solve pipeline duration in seconds.", Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120}},
		[]string{"objective"},
	)
	// SolveOrders counts routed vs unassigned orders across solves
	SolveOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solve_orders_total", Help: "Orders by solve outcome."},
		[]string{"outcome"},
	)
	// MatrixFallbacks counts solves served by geodesic estimates
	MatrixFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "matrix_fallbacks_total", Help: "Solves that fell back to geodesic estimates."},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(SolveOrders)
		Registry.MustRegister(MatrixFallbacks)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
