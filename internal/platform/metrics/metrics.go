// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RowsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "txn_ingest_rows_parsed_total",
		Help: "Transactions produced by extraction, labeled by source",
	}, []string{"source"})

	RowsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "txn_ingest_rows_skipped_total",
		Help: "Source rows that could not be mapped, labeled by source",
	}, []string{"source"})

	Duplicates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "txn_ingest_duplicates_total",
		Help: "Transactions flagged as duplicates, labeled by tier",
	}, []string{"tier"})

	Enqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "txn_ingest_enqueued_total",
		Help: "Items added to the review queue, labeled by source",
	}, []string{"source"})

	Commits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "txn_ingest_commits_total",
		Help: "Ledger commit attempts, labeled by outcome",
	}, []string{"outcome"})

	ExternalFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "txn_ingest_external_failures_total",
		Help: "Failed calls to external collaborators, labeled by collaborator",
	}, []string{"collaborator"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "txn_ingest_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "txn_ingest_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "endpoint"})
)

// RecordDedup adds the duplicate counts of one classification run.
func RecordDedup(withinFile, database, pending int) {
	Duplicates.WithLabelValues("within_file").Add(float64(withinFile))
	Duplicates.WithLabelValues("database").Add(float64(database))
	Duplicates.WithLabelValues("pending").Add(float64(pending))
}
