// Package metrics provides Prometheus metrics for the aggregation engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Cache metrics
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheEvictions prometheus.Counter
	cacheEntries   prometheus.Gauge

	// Event store metrics
	storeQueries      prometheus.Counter
	storeQueryErrors  prometheus.Counter
	storeRetries      prometheus.Counter
	storeQueryLatency prometheus.Histogram

	// Aggregation metrics
	rosterResolutions  prometheus.Counter
	resolutionFailures prometheus.Counter
	captainScans       prometheus.Counter
	leaderboardComputes prometheus.Counter
	leaderboardDuration prometheus.Histogram
	partialResults      prometheus.Counter
	approvalEvaluations prometheus.Counter

	// Ingest pipeline metrics
	ingestQueueDepth    prometheus.Gauge
	ingestQueueCapacity prometheus.Gauge
	ingestEnqueues      prometheus.Counter
	ingestDequeues      prometheus.Counter
	ingestRejections    *prometheus.CounterVec
	ingestApplied       prometheus.Counter
	ingestDuplicates    prometheus.Counter
	ingestErrors        prometheus.Counter
	ingestLatency       prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "runstr",
		subsystem:        "aggregation",
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
	factory := promauto.With(m.registry)

	m.cacheHits = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Cache hits by category.",
	}, []string{"category"})

	m.cacheMisses = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Cache misses (absent or expired) by category.",
	}, []string{"category"})

	m.cacheEvictions = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_evictions_total",
		Help:      "Explicit cache invalidations.",
	})

	m.cacheEntries = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_entries",
		Help:      "Current number of cache entries.",
	})

	m.storeQueries = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_queries_total",
		Help:      "Queries issued to the event store.",
	})

	m.storeQueryErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_errors_total",
		Help:      "Event store queries that failed after retry.",
	})

	m.storeRetries = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_retries_total",
		Help:      "Single-shot retries of failed event store queries.",
	})

	m.storeQueryLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_ms",
		Help:      "Event store query latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.rosterResolutions = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "roster_resolutions_total",
		Help:      "Roster resolutions computed from events.",
	})

	m.resolutionFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolution_failures_total",
		Help:      "Roster resolutions that failed outright.",
	})

	m.captainScans = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "captain_scans_total",
		Help:      "Broad team scans performed by the captain detector.",
	})

	m.leaderboardComputes = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_computes_total",
		Help:      "Leaderboard computations performed.",
	})

	m.leaderboardDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_compute_duration_ms",
		Help:      "Leaderboard computation duration in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.partialResults = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "partial_results_total",
		Help:      "Aggregations that completed with flagged gaps.",
	})

	m.approvalEvaluations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "approval_evaluations_total",
		Help:      "Authorized-participant set evaluations.",
	})

	m.ingestQueueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_queue_depth",
		Help:      "Events currently buffered in the ingest queue.",
	})

	m.ingestQueueCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_queue_capacity",
		Help:      "Configured capacity of the ingest queue.",
	})

	m.ingestEnqueues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_enqueues_total",
		Help:      "Events accepted into the ingest queue.",
	})

	m.ingestDequeues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_dequeues_total",
		Help:      "Events handed to ingest workers.",
	})

	m.ingestRejections = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_rejections_total",
		Help:      "Events refused at the queue boundary, by reason.",
	}, []string{"reason"})

	m.ingestApplied = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_applied_total",
		Help:      "Events applied to the local event log.",
	})

	m.ingestDuplicates = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_duplicates_total",
		Help:      "Events dropped as already-seen ids.",
	})

	m.ingestErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_errors_total",
		Help:      "Ingest worker failures.",
	})

	m.ingestLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_latency_ms",
		Help:      "Per-event ingest processing latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method, and status.",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method"})
}

// Handler returns an HTTP handler exposing the engine's metrics registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// Package-level helpers recording against the global manager.

func RecordCacheHit(category string)  { globalManager.cacheHits.WithLabelValues(category).Inc() }
func RecordCacheMiss(category string) { globalManager.cacheMisses.WithLabelValues(category).Inc() }
func RecordCacheEviction()            { globalManager.cacheEvictions.Inc() }
func UpdateCacheEntries(n int)        { globalManager.cacheEntries.Set(float64(n)) }

func RecordStoreQuery()                  { globalManager.storeQueries.Inc() }
func RecordStoreQueryError()             { globalManager.storeQueryErrors.Inc() }
func RecordStoreRetry()                  { globalManager.storeRetries.Inc() }
func RecordStoreQueryLatency(ms float64) { globalManager.storeQueryLatency.Observe(ms) }

func RecordRosterResolution()  { globalManager.rosterResolutions.Inc() }
func RecordResolutionFailure() { globalManager.resolutionFailures.Inc() }
func RecordCaptainScan()       { globalManager.captainScans.Inc() }

func RecordLeaderboardCompute()             { globalManager.leaderboardComputes.Inc() }
func RecordLeaderboardDuration(ms float64)  { globalManager.leaderboardDuration.Observe(ms) }
func RecordPartialResult()                  { globalManager.partialResults.Inc() }
func RecordApprovalEvaluation()             { globalManager.approvalEvaluations.Inc() }

func UpdateQueueDepth(n int)    { globalManager.ingestQueueDepth.Set(float64(n)) }
func UpdateQueueCapacity(n int) { globalManager.ingestQueueCapacity.Set(float64(n)) }
func RecordEnqueue()            { globalManager.ingestEnqueues.Inc() }
func RecordDequeue()            { globalManager.ingestDequeues.Inc() }
func RecordEnqueueRejected(reason string) {
	globalManager.ingestRejections.WithLabelValues(reason).Inc()
}
func RecordEventApplied()            { globalManager.ingestApplied.Inc() }
func RecordEventDuplicate()          { globalManager.ingestDuplicates.Inc() }
func RecordIngestError()             { globalManager.ingestErrors.Inc() }
func RecordIngestLatency(ms float64) { globalManager.ingestLatency.Observe(ms) }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}
