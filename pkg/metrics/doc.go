/*
Package metrics provides Prometheus metrics collection and exposition for
the wallet backends, plus a small liveness/readiness health surface for
any process embedding this module (cmd/walletctl's serve mode).

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Types                   │          │
	│  │  Gauge: open wallets, record counts         │          │
	│  │  Counter: operations, HTTP requests         │          │
	│  │  Histogram: operation/request latency       │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           HTTP /metrics endpoint             │          │
	│  │  - metrics.Handler() -> promhttp.Handler()  │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────────┘

# Metrics

Wallet lifecycle:
  - walletstore_wallets_open{backend}: gauge of currently open handles.
  - walletstore_wallet_operations_total{backend,operation,outcome}:
    counter incremented by every Store method on return.
  - walletstore_wallet_operation_duration_seconds{backend,operation}:
    histogram of operation latency, measured with time.Since by each
    backend's recordOp helper.

Records:
  - walletstore_records_total{backend}: gauge set by the file backend's
    GetAll; the other backends do not set it.
  - walletstore_search_results_total{backend}: histogram of result-set
    sizes per search call (the relational backend observes it only when
    the search asks for the total count).

Relational backend:
  - walletstore_pg_pool_connections_in_use: gauge of pool connections
    held by live GetAll/Search iterators; one-shot pool calls are not
    counted.

Remote backend:
  - walletstore_remote_requests_total{method,status}: counter per HTTP
    call the client makes.
  - walletstore_remote_request_duration_seconds{method}: histogram of
    round-trip latency.
  - walletstore_remote_root_fallbacks_total: counter of Get calls that
    fell back to the root virtual wallet (spec §4.5).

# Usage

	timer := metrics.NewTimer()
	err := store.Add(ctx, typ, id, value, tags)
	metrics.WalletOperationDuration.WithLabelValues("relational", "add").Observe(timer.Duration().Seconds())
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.WalletOperationsTotal.WithLabelValues("relational", "add", outcome).Inc()

# Health

GetHealth/GetReadiness/HealthHandler/ReadyHandler/LivenessHandler mirror
the shape of pkg/health's Checker results for an HTTP process to expose
directly, independent of any individual wallet backend's own health
probe (e.g. the remote backend's server-reachability check).
*/
package metrics
