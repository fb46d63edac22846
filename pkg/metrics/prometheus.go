// Package metrics provides Prometheus metrics for the scoreboard service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Aggregation
	resultsSubmitted *prometheus.CounterVec
	submitLatency    prometheus.Histogram
	submitErrors     *prometheus.CounterVec
	resultsTotal     prometheus.Gauge
	entriesTotal     prometheus.Gauge
	queryLatency     *prometheus.HistogramVec

	// Store
	storeErrors *prometheus.CounterVec

	// Notifications
	notifyQueueSize     prometheus.Gauge
	notifyQueueCapacity prometheus.Gauge
	notifyDropped       prometheus.Counter
	notifyBroadcasts    *prometheus.CounterVec
	notifyLatency       prometheus.Histogram
	notifierWorkers     prometheus.Gauge
	websocketClients    prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// Export
	exportsGenerated prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to keep the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scoreboard",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.resultsSubmitted = auto.NewCounterVec(
		m.counterOpts("results_submitted_total", "Game results stored, by game type"),
		[]string{"game_type"},
	)
	m.submitLatency = auto.NewHistogram(m.histogramOpts(
		"submit_latency_milliseconds", "Latency of append+upsert in milliseconds"))
	m.submitErrors = auto.NewCounterVec(
		m.counterOpts("submit_errors_total", "Failed submissions, by error kind"),
		[]string{"kind"},
	)
	m.resultsTotal = auto.NewGauge(m.gaugeOpts(
		"results", "Number of stored game results"))
	m.entriesTotal = auto.NewGauge(m.gaugeOpts(
		"leaderboard_entries", "Number of (player_name, game_type) leaderboard entries"))
	m.queryLatency = auto.NewHistogramVec(
		m.histogramOpts("query_latency_milliseconds", "Latency of read queries in milliseconds"),
		[]string{"query"},
	)

	m.storeErrors = auto.NewCounterVec(
		m.counterOpts("store_errors_total", "Backend errors, by backend and operation"),
		[]string{"backend", "op"},
	)

	m.notifyQueueSize = auto.NewGauge(m.gaugeOpts(
		"notify_queue_size", "Pending leaderboard change notifications"))
	m.notifyQueueCapacity = auto.NewGauge(m.gaugeOpts(
		"notify_queue_capacity", "Capacity of the notification queue"))
	m.notifyDropped = auto.NewCounter(m.counterOpts(
		"notify_dropped_total", "Change notifications dropped because the queue was full or closed"))
	m.notifyBroadcasts = auto.NewCounterVec(
		m.counterOpts("notify_broadcasts_total", "Leaderboard broadcasts sent to websocket rooms"),
		[]string{"game_type"},
	)
	m.notifyLatency = auto.NewHistogram(m.histogramOpts(
		"notify_latency_milliseconds", "Time to read and broadcast one leaderboard change"))
	m.notifierWorkers = auto.NewGauge(m.gaugeOpts(
		"notifier_workers", "Number of running notifier workers"))
	m.websocketClients = auto.NewGauge(m.gaugeOpts(
		"websocket_clients", "Connected websocket subscribers"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpErrors = auto.NewCounterVec(
		m.counterOpts("http_errors_total", "HTTP error responses by endpoint and error type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.exportsGenerated = auto.NewCounter(m.counterOpts(
		"exports_generated_total", "XLSX leaderboard exports generated"))

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts(
		"system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts(
		"system_goroutines", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_milliseconds", "Average GC pause in milliseconds"))
}

// RecordResultSubmitted counts one stored result for gameType.
func RecordResultSubmitted(gameType string) {
	globalManager.resultsSubmitted.WithLabelValues(gameType).Inc()
}

// RecordSubmitLatency observes the latency of one submit.
func RecordSubmitLatency(latencyMs float64) {
	globalManager.submitLatency.Observe(latencyMs)
}

// RecordSubmitError counts a failed submit of the given kind.
func RecordSubmitError(kind string) {
	globalManager.submitErrors.WithLabelValues(kind).Inc()
}

// UpdateTotals sets the stored result and leaderboard entry gauges.
func UpdateTotals(results, entries int) {
	globalManager.resultsTotal.Set(float64(results))
	globalManager.entriesTotal.Set(float64(entries))
}

// RecordQueryLatency observes a read query ("leaderboard", "history").
func RecordQueryLatency(query string, latencyMs float64) {
	globalManager.queryLatency.WithLabelValues(query).Observe(latencyMs)
}

// RecordStoreError counts a backend failure.
func RecordStoreError(backend, op string) {
	globalManager.storeErrors.WithLabelValues(backend, op).Inc()
}

// UpdateNotifyQueueSize sets the number of pending notifications.
func UpdateNotifyQueueSize(size int) {
	globalManager.notifyQueueSize.Set(float64(size))
}

// UpdateNotifyQueueCapacity sets the notification queue capacity.
func UpdateNotifyQueueCapacity(capacity int) {
	globalManager.notifyQueueCapacity.Set(float64(capacity))
}

// RecordNotifyDropped counts a dropped change notification.
func RecordNotifyDropped() {
	globalManager.notifyDropped.Inc()
}

// RecordNotifyBroadcast counts a broadcast for gameType.
func RecordNotifyBroadcast(gameType string) {
	globalManager.notifyBroadcasts.WithLabelValues(gameType).Inc()
}

// RecordNotifyLatency observes the time spent handling one change.
func RecordNotifyLatency(latencyMs float64) {
	globalManager.notifyLatency.Observe(latencyMs)
}

// UpdateNotifierWorkers sets the running notifier worker count.
func UpdateNotifierWorkers(count int) {
	globalManager.notifierWorkers.Set(float64(count))
}

// UpdateWebsocketClients sets the connected subscriber count.
func UpdateWebsocketClients(count int) {
	globalManager.websocketClients.Set(float64(count))
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes one HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError counts one HTTP error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordExportGenerated counts one XLSX export.
func RecordExportGenerated() {
	globalManager.exportsGenerated.Inc()
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval returns how often periodic gauges should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}
