// Package metrics provides the centralized Prometheus registry reference for
// the permit client. All metrics are defined in their respective packages
// (client, pagination, store) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the permit client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - pdd_requests_total{outcome} (Counter): Page requests by outcome
//     (HTTP status, network_error, decode_error)
//   - pdd_request_duration_seconds (Histogram): Page request duration
//   - pdd_errors_total{class} (Counter): Errors by class (client, server, decode, network)
//   - pdd_page_records (Histogram): Raw records delivered per page
//
// Run Metrics (pkg/pagination):
//   - pdd_runs_total{result} (Counter): Fetch runs by result (complete, failed, cancelled)
//   - pdd_records_normalized_total (Counter): Raw records that passed normalization
//   - pdd_records_rejected_total (Counter): Raw records dropped by normalization
//
// Store Metrics (pkg/store):
//   - pdd_store_writes_total (Counter): Permit records written to the Redis sink
//   - pdd_store_errors_total{operation} (Counter): Redis sink operation errors
//
// Example Prometheus Queries:
//
//   # Request Error Rate
//   rate(pdd_errors_total[5m])
//
//   # Rejection Ratio
//   rate(pdd_records_rejected_total[5m]) /
//   (rate(pdd_records_normalized_total[5m]) + rate(pdd_records_rejected_total[5m]))
//
//   # P95 Page Latency
//   histogram_quantile(0.95, rate(pdd_request_duration_seconds_bucket[5m]))
//
//   # Failed Run Rate
//   rate(pdd_runs_total{result="failed"}[1h])
