// Package metrics provides Prometheus metrics for the ladder leaderboard engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ingestion
	eventsIngested     prometheus.Counter
	eventsRejected     *prometheus.CounterVec
	eventsDuplicate    prometheus.Counter
	bestScoreImproved  *prometheus.CounterVec
	periodUpdateErrors *prometheus.CounterVec
	ingestLatency      prometheus.Histogram
	activePeriods      prometheus.Gauge

	// Queries
	queryLatency *prometheus.HistogramVec
	queryErrors  *prometheus.CounterVec

	// Period lifecycle
	periodResets      *prometheus.CounterVec
	periodKeysDeleted *prometheus.CounterVec
	lastResetUnix     *prometheus.GaugeVec

	// Backing store
	storeOpLatency *prometheus.HistogramVec
	storeOpErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // service registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ladder",
		subsystem:        "leaderboard",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
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
	constLabels := prometheus.Labels(m.customLabels)

	m.eventsIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: "events_ingested_total",
		Help: "Score events written to the ledger",
	})
	m.eventsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: "events_rejected_total",
		Help: "Score events rejected before any write, by reason",
	}, []string{"reason"})
	m.eventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: "events_duplicate_total",
		Help: "Score events skipped because their request id was already accepted",
	})
	m.bestScoreImproved = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: "best_score_improved_total",
		Help: "Best-score replacements, by period",
	}, []string{"period"})
	m.periodUpdateErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: "period_update_errors_total",
		Help: "Aggregate updates that failed for a single period during fan-out",
	}, []string{"period"})
	m.ingestLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name:    "ingest_latency_milliseconds",
		Help:    "End-to-end latency of Add including period fan-out",
		Buckets: m.histogramBuckets,
	})
	m.activePeriods = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: "active_periods",
		Help: "Number of rolling periods events fan out to, alltime excluded",
	})

	m.queryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name:    "query_latency_milliseconds",
		Help:    "Query latency by query kind",
		Buckets: m.histogramBuckets,
	}, []string{"kind"})
	m.queryErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: "query_errors_total",
		Help: "Failed queries by kind (not-found results are not errors)",
	}, []string{"kind"})

	m.periodResets = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: "period_resets_total",
		Help: "Period clears by period and outcome",
	}, []string{"period", "outcome"})
	m.periodKeysDeleted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: "period_keys_deleted_total",
		Help: "Keys removed by period clears",
	}, []string{"period"})
	m.lastResetUnix = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: "period_last_reset_unix",
		Help: "Unix time of the last successful clear per period",
	}, []string{"period"})

	m.storeOpLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name:    "store_op_latency_milliseconds",
		Help:    "Backing store operation latency",
		Buckets: m.histogramBuckets,
	}, []string{"backend", "op"})
	m.storeOpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: "store_op_errors_total",
		Help: "Backing store operations that failed (missing keys excluded)",
	}, []string{"backend", "op"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: "system_memory_usage_bytes",
		Help: "Heap bytes allocated",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: "system_goroutine_count",
		Help: "Number of goroutines",
	})
}

// RecordEventIngested counts a ledger write.
func RecordEventIngested() {
	if globalManager.enabled {
		globalManager.eventsIngested.Inc()
	}
}

// RecordEventRejected counts an event rejected before any write.
func RecordEventRejected(reason string) {
	if globalManager.enabled {
		globalManager.eventsRejected.WithLabelValues(reason).Inc()
	}
}

// RecordEventDuplicate counts an event skipped by the idempotency guard.
func RecordEventDuplicate() {
	if globalManager.enabled {
		globalManager.eventsDuplicate.Inc()
	}
}

// RecordBestScoreImproved counts a best-score replacement for period.
func RecordBestScoreImproved(period string) {
	if globalManager.enabled {
		globalManager.bestScoreImproved.WithLabelValues(period).Inc()
	}
}

// RecordPeriodUpdateError counts a failed aggregate update for period.
func RecordPeriodUpdateError(period string) {
	if globalManager.enabled {
		globalManager.periodUpdateErrors.WithLabelValues(period).Inc()
	}
}

// RecordIngestLatency observes Add latency in milliseconds.
func RecordIngestLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.ingestLatency.Observe(latencyMs)
	}
}

// UpdateActivePeriods sets the number of periods events fan out to.
func UpdateActivePeriods(count int) {
	if globalManager.enabled {
		globalManager.activePeriods.Set(float64(count))
	}
}

// RecordQueryLatency observes the latency of a query of the given kind.
func RecordQueryLatency(kind string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.queryLatency.WithLabelValues(kind).Observe(latencyMs)
	}
}

// RecordQueryError counts a failed query of the given kind.
func RecordQueryError(kind string) {
	if globalManager.enabled {
		globalManager.queryErrors.WithLabelValues(kind).Inc()
	}
}

// RecordPeriodReset counts a period clear with its outcome ("ok", "error", "rejected").
func RecordPeriodReset(period, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.periodResets.WithLabelValues(period, outcome).Inc()
	if outcome == "ok" {
		globalManager.lastResetUnix.WithLabelValues(period).Set(float64(time.Now().Unix()))
	}
}

// RecordPeriodKeysDeleted adds n deleted keys for period.
func RecordPeriodKeysDeleted(period string, n int64) {
	if globalManager.enabled && n > 0 {
		globalManager.periodKeysDeleted.WithLabelValues(period).Add(float64(n))
	}
}

// RecordStoreOp observes a backing store operation.
func RecordStoreOp(backend, op string, latencyMs float64, failed bool) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeOpLatency.WithLabelValues(backend, op).Observe(latencyMs)
	if failed {
		globalManager.storeOpErrors.WithLabelValues(backend, op).Inc()
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// UpdateSystemMemoryUsage sets the heap usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RefreshInterval reports how often gauge updaters should run.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Since returns the milliseconds elapsed since start.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
