package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ingestion pipeline
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   prometheus.CounterVec
	HTTPRequestDuration prometheus.HistogramVec

	// Pipeline metrics
	ItemsSubmittedTotal prometheus.CounterVec
	ItemsCompletedTotal prometheus.CounterVec
	ItemsFailedTotal    prometheus.CounterVec
	ItemsCancelledTotal prometheus.CounterVec
	StageDuration       prometheus.HistogramVec
	ItemsInFlight       prometheus.Gauge
	QueueDepth          prometheus.Gauge

	// Blob store metrics
	BlobUploadDuration prometheus.HistogramVec
	BlobUploadsTotal   prometheus.CounterVec

	// Document store metrics
	DocStoreOperationDuration prometheus.HistogramVec
	DocStoreOperationsTotal   prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),

			ItemsSubmittedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ingest_items_submitted_total",
					Help: "Total number of items submitted for ingestion",
				},
				[]string{},
			),
			ItemsCompletedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ingest_items_completed_total",
					Help: "Total number of items that completed ingestion",
				},
				[]string{},
			),
			ItemsFailedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ingest_items_failed_total",
					Help: "Total number of items that failed ingestion",
				},
				[]string{"stage"},
			),
			ItemsCancelledTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ingest_items_cancelled_total",
					Help: "Total number of items cancelled before completion",
				},
				[]string{},
			),
			StageDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ingest_stage_duration_seconds",
					Help:    "Duration of each pipeline stage in seconds",
					Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
				},
				[]string{"stage"},
			),
			ItemsInFlight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "ingest_items_in_flight",
					Help: "Number of items currently being processed",
				},
			),
			QueueDepth: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "ingest_queue_depth",
					Help: "Number of items waiting in the admission queue",
				},
			),

			BlobUploadDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ingest_blob_upload_duration_seconds",
					Help:    "Blob store upload latency in seconds",
					Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
				},
				[]string{"kind"},
			),
			BlobUploadsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ingest_blob_uploads_total",
					Help: "Total number of blob store uploads",
				},
				[]string{"kind", "status"},
			),

			DocStoreOperationDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ingest_docstore_operation_duration_seconds",
					Help:    "Document store operation latency in seconds",
					Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"operation"},
			),
			DocStoreOperationsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ingest_docstore_operations_total",
					Help: "Total number of document store operations",
				},
				[]string{"operation", "status"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	if instance == nil {
		return Initialize()
	}
	return instance
}
