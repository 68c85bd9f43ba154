package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opencalc_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opencalc_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "opencalc_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Market-data provider metrics
	ProviderAPICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opencalc_provider_api_calls_total",
			Help: "Total number of market-data provider API calls",
		},
		[]string{"provider", "endpoint", "status"}, // status: success|error
	)

	ProviderAPILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opencalc_provider_api_latency_seconds",
			Help:    "Market-data provider API latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "endpoint"},
	)

	// Snapshot metrics
	SnapshotRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opencalc_snapshot_refreshes_total",
			Help: "Total number of strike snapshot refreshes",
		},
		[]string{"status"}, // status: success|error
	)

	SnapshotStrikes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "opencalc_snapshot_strikes_count",
			Help: "Number of strike records written on last refresh",
		},
		[]string{"symbol"},
	)

	// Trade metrics
	TradesRefreshed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opencalc_trades_refreshed_total",
			Help: "Total number of open trade metric refreshes",
		},
		[]string{"status"}, // status: success|stale|error
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opencalc_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|redis
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opencalc_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	// Worker metrics
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)

	// Provider metrics
	prometheus.MustRegister(ProviderAPICalls)
	prometheus.MustRegister(ProviderAPILatency)

	// Snapshot metrics
	prometheus.MustRegister(SnapshotRefreshes)
	prometheus.MustRegister(SnapshotStrikes)

	// Trade metrics
	prometheus.MustRegister(TradesRefreshed)

	// Database metrics
	prometheus.MustRegister(DBQueries)
	prometheus.MustRegister(DBQueryDuration)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordProviderCall records a market-data provider API call
func RecordProviderCall(provider, endpoint string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	ProviderAPICalls.WithLabelValues(provider, endpoint, status).Inc()
	ProviderAPILatency.WithLabelValues(provider, endpoint).Observe(latency.Seconds())
}

// RecordSnapshotRefresh records one snapshot refresh cycle for a symbol
func RecordSnapshotRefresh(symbol string, strikes int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	SnapshotRefreshes.WithLabelValues(status).Inc()
	if err == nil {
		SnapshotStrikes.WithLabelValues(symbol).Set(float64(strikes))
	}
}

// RecordTradeRefresh records one open trade refresh outcome
func RecordTradeRefresh(status string) {
	TradesRefreshed.WithLabelValues(status).Inc()
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	DBQueries.WithLabelValues(database, operation, status).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}
