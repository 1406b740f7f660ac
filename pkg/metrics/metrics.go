// Package metrics provides Prometheus metrics for WebHDFS client operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Operation metrics
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hdfs_client_operations_total",
			Help: "Total number of WebHDFS operations issued",
		},
		[]string{"op", "outcome"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hdfs_client_operation_duration_seconds",
			Help:    "WebHDFS operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	retriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hdfs_client_retries_total",
			Help: "Total number of transient request failures entering the retry path",
		},
	)

	failoversTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hdfs_client_failovers_total",
			Help: "Total number of name-node failovers",
		},
	)

	// Transfer metrics
	bytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hdfs_client_bytes_uploaded_total",
			Help: "Total bytes written to data-nodes",
		},
	)

	bytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hdfs_client_bytes_downloaded_total",
			Help: "Total bytes read from data-nodes",
		},
	)

	transferFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hdfs_client_transfer_files_total",
			Help: "Per-file outcomes of upload/download transfers",
		},
		[]string{"direction", "outcome"},
	)
)

// RecordOperation records one completed operation with its outcome
// ("ok", "remote_error", "transport_error") and duration in seconds.
func RecordOperation(op, outcome string, seconds float64) {
	operationsTotal.WithLabelValues(op, outcome).Inc()
	operationDuration.WithLabelValues(op).Observe(seconds)
}

// RecordRetry counts a retried request.
func RecordRetry() {
	retriesTotal.Inc()
}

// RecordFailover counts a name-node failover.
func RecordFailover() {
	failoversTotal.Inc()
}

// AddBytesUploaded counts bytes sent to a data-node.
func AddBytesUploaded(n int64) {
	if n > 0 {
		bytesUploaded.Add(float64(n))
	}
}

// AddBytesDownloaded counts bytes received from a data-node.
func AddBytesDownloaded(n int64) {
	if n > 0 {
		bytesDownloaded.Add(float64(n))
	}
}

// RecordTransferFile records one per-file transfer outcome. Direction is
// "upload" or "download"; outcome is "ok", "skipped" or "error".
func RecordTransferFile(direction, outcome string) {
	transferFilesTotal.WithLabelValues(direction, outcome).Inc()
}
