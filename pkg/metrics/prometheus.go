// Package metrics provides Prometheus metrics for the Tryout assessment
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion metrics
	eventsAppended    prometheus.Counter
	eventsDebounced   prometheus.Counter
	checkpointsMarked prometheus.Counter
	batchesDuplicate  prometheus.Counter
	batchesRejected   prometheus.Counter
	appendLatency     prometheus.Histogram

	// Log metrics
	queryLatency  prometheus.Histogram
	totalSessions prometheus.Gauge

	// Evaluation metrics
	evaluationRuns     prometheus.Counter
	evaluationErrors   prometheus.Counter
	evaluationDuration prometheus.Histogram
	analyzerFailures   *prometheus.CounterVec

	// Blob store metrics
	blobUploads   prometheus.Counter
	blobFallbacks prometheus.Counter

	// Queue and worker metrics
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueEnqueues     prometheus.Counter
	queueDequeues     prometheus.Counter
	queueEnqueueFails prometheus.Counter
	workerCount       prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tryout",
		subsystem:        "assessment",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsAppended = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_appended_total",
		Help:      "Total number of session events appended to the log",
	})
	m.eventsDebounced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_debounced_total",
		Help:      "Total number of high-frequency events dropped by the optimizer",
	})
	m.checkpointsMarked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "checkpoints_marked_total",
		Help:      "Total number of events promoted to replay checkpoints",
	})
	m.batchesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_duplicate_total",
		Help:      "Total number of retried batches suppressed by nonce dedupe",
	})
	m.batchesRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_rejected_total",
		Help:      "Total number of batches rejected by validation",
	})
	m.appendLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "append_latency_milliseconds",
		Help:      "Histogram of event log append latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.queryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "query_latency_milliseconds",
		Help:      "Histogram of event log query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.totalSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_sessions",
		Help:      "Total number of session logs tracked",
	})

	m.evaluationRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_runs_total",
		Help:      "Total number of completed evaluation runs",
	})
	m.evaluationErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_errors_total",
		Help:      "Total number of evaluation runs that failed outright",
	})
	m.evaluationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_duration_milliseconds",
		Help:      "Histogram of end-to-end evaluation duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.analyzerFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "analyzer_failures_total",
			Help:      "Total number of analyzer failures degraded to placeholders",
		},
		[]string{"analyzer"},
	)

	m.blobUploads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "blob_uploads_total",
		Help:      "Total number of snapshot files offloaded to the blob store",
	})
	m.blobFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "blob_fallbacks_total",
		Help:      "Total number of blob failures that fell back to inline content",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_queue_size",
		Help:      "Current number of queued evaluation jobs",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_queue_capacity",
		Help:      "Maximum capacity of the evaluation job queue",
	})
	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_queue_enqueues_total",
		Help:      "Total number of evaluation jobs enqueued",
	})
	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_queue_dequeues_total",
		Help:      "Total number of evaluation jobs dequeued",
	})
	m.queueEnqueueFails = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_queue_enqueue_failures_total",
		Help:      "Total number of rejected enqueue attempts (backpressure or closed)",
	})
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of evaluation workers",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint, method and status",
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current allocated heap memory in bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
}

// Ingestion metrics functions.

// RecordEventsAppended adds to the appended events counter.
func RecordEventsAppended(n int) { globalManager.eventsAppended.Add(float64(n)) }

// RecordEventsDebounced adds to the debounced events counter.
func RecordEventsDebounced(n int) { globalManager.eventsDebounced.Add(float64(n)) }

// RecordCheckpointsMarked adds to the checkpoint counter.
func RecordCheckpointsMarked(n int) { globalManager.checkpointsMarked.Add(float64(n)) }

// RecordBatchDuplicate increments the duplicate batch counter.
func RecordBatchDuplicate() { globalManager.batchesDuplicate.Inc() }

// RecordBatchRejected increments the rejected batch counter.
func RecordBatchRejected() { globalManager.batchesRejected.Inc() }

// RecordAppendLatency records one append operation's latency.
func RecordAppendLatency(latencyMs float64) { globalManager.appendLatency.Observe(latencyMs) }

// RecordQueryLatency records one query operation's latency.
func RecordQueryLatency(latencyMs float64) { globalManager.queryLatency.Observe(latencyMs) }

// UpdateTotalSessions sets the tracked session gauge.
func UpdateTotalSessions(n int) { globalManager.totalSessions.Set(float64(n)) }

// Evaluation metrics functions.

// RecordEvaluationRun increments the completed evaluation counter.
func RecordEvaluationRun() { globalManager.evaluationRuns.Inc() }

// RecordEvaluationError increments the failed evaluation counter.
func RecordEvaluationError() { globalManager.evaluationErrors.Inc() }

// RecordEvaluationDuration records one evaluation's duration.
func RecordEvaluationDuration(latencyMs float64) {
	globalManager.evaluationDuration.Observe(latencyMs)
}

// RecordAnalyzerFailure increments the failure counter for one analyzer.
func RecordAnalyzerFailure(analyzer string) {
	globalManager.analyzerFailures.WithLabelValues(analyzer).Inc()
}

// Blob store metrics functions.

// RecordBlobUpload increments the blob upload counter.
func RecordBlobUpload() { globalManager.blobUploads.Inc() }

// RecordBlobFallback increments the inline-fallback counter.
func RecordBlobFallback() { globalManager.blobFallbacks.Inc() }

// Queue and worker metrics functions.

// UpdateQueueSize sets the evaluation queue size gauge.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the evaluation queue capacity gauge.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueues.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeues.Inc() }

// RecordQueueEnqueueError increments the enqueue failure counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueFails.Inc() }

// UpdateWorkerCount sets the evaluation worker gauge.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// HTTP metrics functions.

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records one HTTP request's duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// System metrics functions.

// UpdateSystemMemoryUsage sets the allocated heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
