// Package metrics provides Prometheus metrics for the star rating service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Rating engine
	classifications *prometheus.CounterVec
	notApplicable   *prometheus.CounterVec
	aggregations    prometheus.Counter
	projections     prometheus.Counter

	// Batch simulation
	simulations        prometheus.Counter
	simulatedContracts prometheus.Counter
	simulationDuration prometheus.Histogram

	// Loaded data
	contractsLoaded prometheus.Gauge
	rulesLoaded     *prometheus.GaugeVec
	loadErrors      *prometheus.CounterVec

	// Contract store
	repositoryQueryLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// MCP
	toolCalls *prometheus.CounterVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "starcalc",
		subsystem:        "rating",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.classifications = auto.NewCounterVec(
		m.counterOpts("classifications_total", "Measures classified, by part and star tier"),
		[]string{"part", "stars"},
	)
	m.notApplicable = auto.NewCounterVec(
		m.counterOpts("not_applicable_total", "Measures that resolved to not applicable, by part and reason"),
		[]string{"part", "reason"},
	)
	m.aggregations = auto.NewCounter(m.counterOpts("aggregations_total", "Summary aggregations computed"))
	m.projections = auto.NewCounter(m.counterOpts("projections_total", "What-if projections computed"))

	m.simulations = auto.NewCounter(m.counterOpts("simulations_total", "Batch simulations run"))
	m.simulatedContracts = auto.NewCounter(m.counterOpts("simulated_contracts_total", "Contracts processed by batch simulations"))
	m.simulationDuration = auto.NewHistogram(m.histogramOpts(
		"simulation_duration_milliseconds", "Batch simulation wall time in milliseconds",
	))

	m.contractsLoaded = auto.NewGauge(m.gaugeOpts("contracts_loaded", "Contracts currently loaded"))
	m.rulesLoaded = auto.NewGaugeVec(m.gaugeOpts("rules_loaded", "Threshold rules currently loaded, by part"), []string{"part"})
	m.loadErrors = auto.NewCounterVec(m.counterOpts("load_errors_total", "Data load failures, by source"), []string{"source"})

	m.repositoryQueryLatency = auto.NewHistogram(m.histogramOpts(
		"repository_query_latency_milliseconds", "Contract store query latency in milliseconds",
	))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.toolCalls = auto.NewCounterVec(
		m.counterOpts("tool_calls_total", "MCP tool invocations, by tool and outcome"),
		[]string{"tool", "outcome"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds"))
}

// RecordClassification counts a rated measure.
func RecordClassification(part, stars string) {
	if !globalManager.enabled {
		return
	}
	globalManager.classifications.WithLabelValues(part, stars).Inc()
}

// RecordNotApplicable counts a measure that could not be rated.
// reason is "marker" for a non-numeric value or "no_rule" for an unknown code.
func RecordNotApplicable(part, reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.notApplicable.WithLabelValues(part, reason).Inc()
}

// RecordAggregation increments the aggregation counter.
func RecordAggregation() {
	if !globalManager.enabled {
		return
	}
	globalManager.aggregations.Inc()
}

// RecordProjection increments the projection counter.
func RecordProjection() {
	if !globalManager.enabled {
		return
	}
	globalManager.projections.Inc()
}

// RecordSimulation records one batch run over contracts.
func RecordSimulation(contracts int, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.simulations.Inc()
	globalManager.simulatedContracts.Add(float64(contracts))
	globalManager.simulationDuration.Observe(durationMs)
}

// UpdateContractsLoaded sets the loaded contract count.
func UpdateContractsLoaded(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.contractsLoaded.Set(float64(count))
}

// UpdateRulesLoaded sets the loaded rule count for a part.
func UpdateRulesLoaded(part string, count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.rulesLoaded.WithLabelValues(part).Set(float64(count))
}

// RecordLoadError counts a failed load of source.
func RecordLoadError(source string) {
	if !globalManager.enabled {
		return
	}
	globalManager.loadErrors.WithLabelValues(source).Inc()
}

// RecordRepositoryQueryLatency records contract store query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordToolCall counts an MCP tool invocation.
func RecordToolCall(tool, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
