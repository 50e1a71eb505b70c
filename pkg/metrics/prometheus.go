// Package metrics provides Prometheus metrics for the lineup service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// History save outcomes used as the "result" label.
const (
	SaveEnqueued  = "enqueued"
	SaveDuplicate = "duplicate"
	SaveRejected  = "rejected"
	SavePersisted = "persisted"
	SaveFailed    = "failed"
)

// Manager manages all Prometheus metrics for the lineup service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Balancing
	matchesGenerated *prometheus.CounterVec
	balanceLatency   prometheus.Histogram
	skillDifference  prometheus.Histogram
	playersPerMatch  prometheus.Histogram

	// Stores
	rosterSize        prometheus.Gauge
	historyEntries    prometheus.Gauge
	historySaves      *prometheus.CounterVec
	historyPruned     prometheus.Counter
	sharesCreated     prometheus.Counter
	repositoryLatency *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// Background jobs and runtime
	schedulerRuns        *prometheus.CounterVec
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics

// customRegistry keeps the default Go collectors out of the exposition.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers every collector on the
// configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "lineup",
		subsystem:        "balancer",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.matchesGenerated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matches_generated_total",
		Help:      "Balanced matches generated, by whether stamina was used",
	}, []string{"stamina"})

	m.balanceLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "balance_latency_milliseconds",
		Help:      "Time spent in one balancing run",
		Buckets:   m.histogramBuckets,
	})

	m.skillDifference = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "skill_difference",
		Help:      "Absolute total-skill gap between generated teams",
		Buckets:   []float64{0, 0.5, 1, 2, 3, 5, 8, 13, 21},
	})

	m.playersPerMatch = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "players_per_match",
		Help:      "Pool size of each balancing run",
		Buckets:   []float64{2, 4, 6, 8, 10, 12, 14, 16, 22, 30},
	})

	m.rosterSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "roster_players",
		Help:      "Players currently stored in the roster",
	})

	m.historyEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_entries",
		Help:      "Saved matches currently kept in history",
	})

	m.historySaves = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_saves_total",
		Help:      "History save requests by outcome",
	}, []string{"result"})

	m.historyPruned = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_pruned_total",
		Help:      "Saved matches removed by retention",
	})

	m.sharesCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "shares_created_total",
		Help:      "Match results published for sharing",
	})

	m.repositoryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_latency_milliseconds",
		Help:      "Store operation latency by store and operation",
		Buckets:   m.histogramBuckets,
	}, []string{"store", "op"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "History saves waiting in the queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum number of queued history saves",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_percent",
		Help:      "Queue fill level in percent",
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueued_total",
		Help:      "Records accepted by the queue",
	})

	m.queueDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeued_total",
		Help:      "Records handed to workers",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Records refused because the queue was full or closed",
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_active_count",
		Help:      "Workers currently running",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Time to persist one queued record",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Records a worker failed to persist",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_endpoint_total",
		Help:      "HTTP errors by endpoint, method and type",
	}, []string{"endpoint", "method", "error_type"})

	m.schedulerRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scheduler_runs_total",
		Help:      "Background job runs by job and result",
	}, []string{"job", "result"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Heap bytes in use",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordMatchGenerated records one balancing run.
func RecordMatchGenerated(useStamina bool, players int, skillDifference, latencyMs float64) {
	globalManager.matchesGenerated.WithLabelValues(strconv.FormatBool(useStamina)).Inc()
	globalManager.playersPerMatch.Observe(float64(players))
	globalManager.skillDifference.Observe(skillDifference)
	globalManager.balanceLatency.Observe(latencyMs)
}

// UpdateRosterSize sets the roster size gauge.
func UpdateRosterSize(count int) {
	globalManager.rosterSize.Set(float64(count))
}

// UpdateHistoryEntries sets the history size gauge.
func UpdateHistoryEntries(count int) {
	globalManager.historyEntries.Set(float64(count))
}

// RecordHistorySave counts a history save outcome (see the Save* constants).
func RecordHistorySave(result string) {
	globalManager.historySaves.WithLabelValues(result).Inc()
}

// RecordHistoryPruned adds n pruned matches.
func RecordHistoryPruned(n int) {
	if n > 0 {
		globalManager.historyPruned.Add(float64(n))
	}
}

// RecordShareCreated increments the shares counter.
func RecordShareCreated() {
	globalManager.sharesCreated.Inc()
}

// RecordRepositoryLatency records a store operation latency in milliseconds.
func RecordRepositoryLatency(store, op string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(store, op).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill level in percent.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the running worker gauge.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records how long a worker took for one record.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error raised by a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint counts an error returned by an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordSchedulerRun counts one background job run.
func RecordSchedulerRun(job, result string) {
	globalManager.schedulerRuns.WithLabelValues(job, result).Inc()
}

// UpdateSystemMemoryUsage sets heap bytes in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry the global metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
