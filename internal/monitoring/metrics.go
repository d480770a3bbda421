package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	RunsTotal           prometheus.Counter
	RunsDelivered       prometheus.Counter
	RunsPending         prometheus.Gauge
	ResolutionsTotal    *prometheus.CounterVec
	ConflictWarnings    prometheus.Counter
	MapValidationErrors prometheus.Counter

	// Bridge metrics
	BridgeEvents     *prometheus.CounterVec
	DroppedOrigin    prometheus.Counter
	DroppedMalformed prometheus.Counter
	ConsoleFiltered  prometheus.Counter
	SessionsReady    prometheus.Gauge

	// WebSocket metrics
	WSConnections *prometheus.GaugeVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// New creates a metrics collector registered on the default registry.
func New() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playground_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		RunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playground_runs_total",
			Help: "Run requests accepted by the pipeline",
		}),
		RunsDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playground_runs_delivered_total",
			Help: "Runs delivered across the isolation boundary",
		}),
		RunsPending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "playground_runs_pending",
			Help: "Runs parked in the single pending slot (0 or 1)",
		}),
		ResolutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_resolutions_total",
				Help: "Import resolutions by outcome and CDN",
			},
			[]string{"status", "cdn"},
		),
		ConflictWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playground_conflict_warnings_total",
			Help: "Version conflict warnings surfaced to the editor",
		}),
		MapValidationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playground_importmap_validation_errors_total",
			Help: "Module maps rejected before injection",
		}),

		BridgeEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_bridge_events_total",
				Help: "Inbound sandbox events by type",
			},
			[]string{"type"},
		),
		DroppedOrigin: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playground_bridge_dropped_origin_total",
			Help: "Inbound messages dropped for a foreign origin",
		}),
		DroppedMalformed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playground_bridge_dropped_malformed_total",
			Help: "Inbound messages dropped as unparseable",
		}),
		ConsoleFiltered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playground_console_filtered_total",
			Help: "Console events suppressed by the noise filter",
		}),
		SessionsReady: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "playground_sessions_ready",
			Help: "Sandbox sessions past the readiness handshake",
		}),

		WSConnections: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "playground_ws_connections",
				Help: "Active WebSocket connections by endpoint",
			},
			[]string{"endpoint"},
		),

		Uptime: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "playground_uptime_seconds",
			Help: "Host uptime in seconds",
		}),
	}

	go m.trackUptime()
	return m
}

func (m *Metrics) trackUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordResolution records one import resolution outcome.
func (m *Metrics) RecordResolution(status, cdn string) {
	if cdn == "" {
		cdn = "none"
	}
	m.ResolutionsTotal.WithLabelValues(status, cdn).Inc()
}

// RecordBridgeEvent records one inbound sandbox event.
func (m *Metrics) RecordBridgeEvent(eventType string) {
	m.BridgeEvents.WithLabelValues(eventType).Inc()
}
