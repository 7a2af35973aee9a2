// Package metrics provides Prometheus metrics for the liftboard service.
package metrics

import (
	"runtime"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the liftboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Submission intake
	submissionsAccepted  prometheus.Counter
	submissionsDuplicate prometheus.Counter
	submissionsRejected  *prometheus.CounterVec
	submissionsSkipped   *prometheus.CounterVec
	dedupeEntries        prometheus.Gauge

	// Scoring and boards
	scoringLatency     prometheus.Histogram
	scoringErrors      prometheus.Counter
	leaderboardUpdates prometheus.Counter
	boardCount         prometheus.Gauge
	entriesTotal       prometheus.Gauge

	// Repository
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager atomic.Pointer[Manager] //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager.Store(NewManager(WithPrometheusRegistry(customRegistry)))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "liftboard",
		subsystem:        "service",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// SetGlobal replaces the manager behind the package-level record functions.
func SetGlobal(m *Manager) error {
	if m == nil {
		return ErrNotInitialized
	}
	globalManager.Store(m)
	return nil
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.submissionsAccepted = m.counter("submissions_accepted_total", "Submissions accepted for scoring")
	m.submissionsDuplicate = m.counter("submissions_duplicate_total", "Submissions dropped as already seen")
	m.submissionsRejected = m.counterVec("submissions_rejected_total", "Submissions refused at intake", "reason")
	m.submissionsSkipped = m.counterVec("submissions_skipped_total", "Accepted submissions that produced no score", "reason")
	m.dedupeEntries = m.gauge("dedupe_entries", "Submission ids currently remembered")

	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Scoring latency in milliseconds")
	m.scoringErrors = m.counter("scoring_errors_total", "Scoring failures")
	m.leaderboardUpdates = m.counter("leaderboard_updates_total", "Scores that improved an athlete's weekly best")
	m.boardCount = m.gauge("boards", "Weekly boards held in memory")
	m.entriesTotal = m.gauge("board_entries", "Athlete entries across all boards")

	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds", "Board update latency in milliseconds")
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Board query latency in milliseconds")

	m.queueSize = m.gauge("queue_size", "Current size of the submission queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Submissions enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Submissions dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Enqueue attempts refused")

	m.workerCount = m.gauge("worker_count", "Workers started")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently processing a submission")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-submission worker latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Worker processing failures")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

func active() *Manager {
	m := globalManager.Load()
	if m == nil || !m.enabled {
		return nil
	}
	return m
}

// RecordSubmissionAccepted increments the accepted submissions counter.
func RecordSubmissionAccepted() {
	if m := active(); m != nil {
		m.submissionsAccepted.Inc()
	}
}

// RecordSubmissionDuplicate increments the duplicate submissions counter.
func RecordSubmissionDuplicate() {
	if m := active(); m != nil {
		m.submissionsDuplicate.Inc()
	}
}

// RecordSubmissionRejected counts a submission refused at intake.
func RecordSubmissionRejected(reason string) {
	if m := active(); m != nil {
		m.submissionsRejected.WithLabelValues(reason).Inc()
	}
}

// RecordSubmissionSkipped counts an accepted submission that produced no score.
func RecordSubmissionSkipped(reason string) {
	if m := active(); m != nil {
		m.submissionsSkipped.WithLabelValues(reason).Inc()
	}
}

// UpdateDedupeEntries sets the number of remembered submission ids.
func UpdateDedupeEntries(n int64) {
	if m := active(); m != nil {
		m.dedupeEntries.Set(float64(n))
	}
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	if m := active(); m != nil {
		m.scoringLatency.Observe(latencyMs)
	}
}

// RecordScoringError increments the scoring errors counter.
func RecordScoringError() {
	if m := active(); m != nil {
		m.scoringErrors.Inc()
	}
}

// RecordLeaderboardUpdate increments the leaderboard updates counter.
func RecordLeaderboardUpdate() {
	if m := active(); m != nil {
		m.leaderboardUpdates.Inc()
	}
}

// UpdateBoardTotals sets the number of boards and entries held.
func UpdateBoardTotals(boards, entries int) {
	if m := active(); m != nil {
		m.boardCount.Set(float64(boards))
		m.entriesTotal.Set(float64(entries))
	}
}

// RecordRepositoryUpdateLatency records board update latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	if m := active(); m != nil {
		m.repositoryUpdateLatency.Observe(latencyMs)
	}
}

// RecordRepositoryQueryLatency records board query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	if m := active(); m != nil {
		m.repositoryQueryLatency.Observe(latencyMs)
	}
}

// UpdateQueueSize sets the current queue size and utilization.
func UpdateQueueSize(size, capacity int) {
	if m := active(); m != nil {
		m.queueSize.Set(float64(size))
		if capacity > 0 {
			m.queueUtilization.Set(float64(size) / float64(capacity))
		}
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if m := active(); m != nil {
		m.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if m := active(); m != nil {
		m.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if m := active(); m != nil {
		m.queueDequeued.Inc()
	}
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if m := active(); m != nil {
		m.queueEnqueueErrors.Inc()
	}
}

// UpdateWorkerCount sets the number of started workers.
func UpdateWorkerCount(count int) {
	if m := active(); m != nil {
		m.workerCount.Set(float64(count))
	}
}

// AddWorkerActive moves the busy-worker gauge by delta.
func AddWorkerActive(delta int) {
	if m := active(); m != nil {
		m.workerActiveCount.Add(float64(delta))
	}
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if m := active(); m != nil {
		m.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if m := active(); m != nil {
		m.workerErrors.Inc()
	}
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if m := active(); m != nil {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if m := active(); m != nil {
		m.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m := active(); m != nil {
		m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// SampleRuntime refreshes the goroutine and heap gauges.
func SampleRuntime() {
	m := active()
	if m == nil {
		return
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.systemMemoryUsage.Set(float64(ms.HeapInuse))
	m.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
