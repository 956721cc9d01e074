package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream targets used as label values.
const (
	TargetArchiveIndex = "archive_index"
	TargetArchiveFetch = "archive_fetch"
	TargetGemini       = "gemini"
)

// Metrics holds all Prometheus metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Upstream metrics
	UpstreamCalls    *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	// Browse pipeline metrics
	BrowseOutcomes *prometheus.CounterVec
	BrowseBytes    prometheus.Histogram

	// Haunt metrics
	HauntLevel       prometheus.Gauge
	HeartbeatSources *prometheus.CounterVec

	// Soul connection metrics
	SoulsConnected    prometheus.Gauge
	WSMessages        *prometheus.CounterVec
	WitnessDeliveries *prometheus.CounterVec

	startTime time.Time
}

// NewMetrics creates a new metrics collector with its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbrain_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ghostbrain_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ghostbrain_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		UpstreamCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbrain_upstream_calls_total",
				Help: "Calls to external services by target and outcome",
			},
			[]string{"target", "status"},
		),
		UpstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ghostbrain_upstream_duration_seconds",
				Help:    "External call duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
			},
			[]string{"target"},
		),

		BrowseOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbrain_browse_outcomes_total",
				Help: "Archived page requests by outcome",
			},
			[]string{"outcome"},
		),
		BrowseBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ghostbrain_browse_page_bytes",
				Help:    "Size of sanitized archived pages",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
			},
		),

		HauntLevel: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ghostbrain_haunt_level",
				Help: "Current haunt level (1-10)",
			},
		),
		HeartbeatSources: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbrain_heartbeat_utterances_total",
				Help: "Heartbeat utterances by source (oracle, fallback, placeholder)",
			},
			[]string{"source"},
		),

		SoulsConnected: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ghostbrain_souls_connected",
				Help: "Number of live soul connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbrain_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
		WitnessDeliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbrain_witness_deliveries_total",
				Help: "Witness event deliveries by result",
			},
			[]string{"result"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ghostbrain_uptime_seconds",
			Help: "Backend uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	m.HauntLevel.Set(1)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

// RecordUpstream records one call to an external service.
func (m *Metrics) RecordUpstream(target, status string, duration time.Duration) {
	m.UpstreamCalls.WithLabelValues(target, status).Inc()
	m.UpstreamDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordBrowse records a browse outcome and, on success, the page size.
func (m *Metrics) RecordBrowse(outcome string, pageBytes int) {
	m.BrowseOutcomes.WithLabelValues(outcome).Inc()
	if pageBytes > 0 {
		m.BrowseBytes.Observe(float64(pageBytes))
	}
}

// SetHauntLevel publishes the current haunt level.
func (m *Metrics) SetHauntLevel(level int) {
	m.HauntLevel.Set(float64(level))
}

// RecordHeartbeat counts an utterance by its source.
func (m *Metrics) RecordHeartbeat(source string) {
	m.HeartbeatSources.WithLabelValues(source).Inc()
}

// SetSouls publishes the number of live soul connections.
func (m *Metrics) SetSouls(count int) {
	m.SoulsConnected.Set(float64(count))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// RecordWitness records the result of one witness delivery.
func (m *Metrics) RecordWitness(delivered bool) {
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	m.WitnessDeliveries.WithLabelValues(result).Inc()
}
