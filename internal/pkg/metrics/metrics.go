package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// --- Inbound (server) metrics ---
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "code"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_errors_total",
			Help: "Total number of HTTP requests resulting in client or server errors.",
		},
		[]string{"method", "route", "code"},
	)

	// --- Outbound (client) metrics ---
	HTTPClientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_client_requests_total",
			Help: "Total number of outbound HTTP requests.",
		},
		[]string{"method", "code"},
	)
	HTTPClientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_client_request_duration_seconds",
			Help:    "Latency of outbound HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "code"},
	)

	// --- Analysis lifecycle metrics ---
	AnalysesStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analyses_started_total",
			Help: "Total number of background analyses started.",
		},
	)
	AnalysesFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyses_finished_total",
			Help: "Total number of background analyses that reached a terminal status.",
		},
		[]string{"status"},
	)
	AnalysesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analyses_in_flight",
			Help: "Number of background analyses currently running or waiting for a slot.",
		},
	)
	AuditDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audit_duration_seconds",
			Help:    "Time spent auditing a single page.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60, 90},
		},
		[]string{"outcome"},
	)
	AnalysisScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_score",
			Help:    "Distribution of accessibility scores of completed analyses.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// --- Runtime metrics ---
	CPUCount = promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "process_cpu_count",
			Help: "Number of CPU cores available.",
		},
		func() float64 { return float64(runtime.NumCPU()) },
	)
)

func MetricsRegister() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRequestErrorsTotal,
		HTTPClientRequestsTotal,
		HTTPClientRequestDuration,
		AnalysesStartedTotal,
		AnalysesFinishedTotal,
		AnalysesInFlight,
		AuditDuration,
		AnalysisScore,
		CPUCount,
	)

	return reg
}
