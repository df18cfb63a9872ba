// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Matching metrics
	OffersLoaded  prometheus.Counter
	EdgesBuilt    prometheus.Counter
	LoopsFound    *prometheus.CounterVec
	MatchRuns     *prometheus.CounterVec
	MatchDuration prometheus.Histogram

	// Simulation metrics
	PeriodsSimulated prometheus.Counter
	TradesExecuted   prometheus.Counter
	TradesDeclined   prometheus.Counter
	LoopsSkipped     prometheus.Counter
	PoolSize         prometheus.Gauge

	// Reporting metrics
	AggregatesComputed prometheus.Counter
	ReportsGenerated   prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Server metrics
	WSClientsConnected prometheus.Gauge
	HTTPRequestLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "watch_trade_lab"
	}

	return &Metrics{
		// Matching metrics
		OffersLoaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "offers_loaded_total",
			Help:      "Total number of offers loaded into matching pools",
		}),
		EdgesBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "edges_built_total",
			Help:      "Total number of legal exchange edges built",
		}),
		LoopsFound: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "loops_found_total",
			Help:      "Total number of trade loops found by type",
		}, []string{"loop_type"}),
		MatchRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "runs_total",
			Help:      "Total number of matching runs by status",
		}, []string{"status"}),
		MatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "duration_seconds",
			Help:      "Matching run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Simulation metrics
		PeriodsSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "periods_total",
			Help:      "Total number of simulated periods",
		}),
		TradesExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trades_executed_total",
			Help:      "Total number of executed trade loops",
		}),
		TradesDeclined: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trades_declined_total",
			Help:      "Total number of declined trade loops",
		}),
		LoopsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "loops_skipped_total",
			Help:      "Total number of loops skipped by validation rules",
		}),
		PoolSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "pool_size",
			Help:      "Current number of offers in the simulation pool",
		}),

		// Reporting metrics
		AggregatesComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "aggregates_computed_total",
			Help:      "Total number of run aggregates computed",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Server metrics
		WSClientsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "ws_clients_connected",
			Help:      "Number of connected WebSocket clients",
		}),
		HTTPRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "http_request_latency_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordMatchRun records a completed matching run.
func RecordMatchRun(status string, durationSeconds float64) {
	DefaultMetrics.MatchRuns.WithLabelValues(status).Inc()
	DefaultMetrics.MatchDuration.Observe(durationSeconds)
}

// RecordLoopsFound increments the loops found counter for a loop type.
func RecordLoopsFound(loopType string, count int) {
	DefaultMetrics.LoopsFound.WithLabelValues(loopType).Add(float64(count))
}

// RecordPeriod records the outcome counts of one simulated period.
func RecordPeriod(executed, declined, skipped, poolSize int) {
	DefaultMetrics.PeriodsSimulated.Inc()
	DefaultMetrics.TradesExecuted.Add(float64(executed))
	DefaultMetrics.TradesDeclined.Add(float64(declined))
	DefaultMetrics.LoopsSkipped.Add(float64(skipped))
	DefaultMetrics.PoolSize.Set(float64(poolSize))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
