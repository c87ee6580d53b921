package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Wallet lifecycle metrics
	WalletsOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "walletstore_wallets_open",
			Help: "Number of currently open wallet handles by backend",
		},
		[]string{"backend"},
	)

	WalletOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletstore_wallet_operations_total",
			Help: "Total number of storage operations by backend, operation and outcome",
		},
		[]string{"backend", "operation", "outcome"},
	)

	WalletOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletstore_wallet_operation_duration_seconds",
			Help:    "Storage operation duration in seconds by backend and operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	// Record-level metrics
	RecordsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "walletstore_records_total",
			Help: "Number of records observed in a wallet by backend (sampled at GetAll)",
		},
		[]string{"backend"},
	)

	SearchResultsTotal = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletstore_search_results_total",
			Help:    "Number of records returned per search call",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		},
		[]string{"backend"},
	)

	// Relational backend metrics
	PoolConnectionsInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletstore_pg_pool_connections_in_use",
			Help: "Number of pgxpool connections currently held by open iterators",
		},
	)

	// Remote backend metrics
	RemoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletstore_remote_requests_total",
			Help: "Total number of remote backend HTTP requests by method and status",
		},
		[]string{"method", "status"},
	)

	RemoteRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletstore_remote_request_duration_seconds",
			Help:    "Remote backend HTTP request duration in seconds by method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	RemoteRootFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "walletstore_remote_root_fallbacks_total",
			Help: "Total number of Get calls that fell back to the root virtual wallet",
		},
	)
)

func init() {
	prometheus.MustRegister(WalletsOpen)
	prometheus.MustRegister(WalletOperationsTotal)
	prometheus.MustRegister(WalletOperationDuration)
	prometheus.MustRegister(RecordsTotal)
	prometheus.MustRegister(SearchResultsTotal)
	prometheus.MustRegister(PoolConnectionsInUse)
	prometheus.MustRegister(RemoteRequestsTotal)
	prometheus.MustRegister(RemoteRequestDuration)
	prometheus.MustRegister(RemoteRootFallbacksTotal)
}

// Handler returns the Prometheus HTTP handler for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
