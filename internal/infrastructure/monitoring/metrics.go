package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive     prometheus.Gauge
	SessionCreations   *prometheus.CounterVec
	CreationDuration   prometheus.Histogram
	StateTransitions   *prometheus.CounterVec
	SessionsCancelled  *prometheus.CounterVec
	ProcessesReaped    *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec

	// Media metrics
	MediaRelayed  *prometheus.CounterVec
	MediaDuration prometheus.Histogram

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds running totals for the JSON health endpoint
type Snapshot struct {
	TotalRequests int64 `json:"total_requests"`
	TotalErrors   int64 `json:"total_errors"`
	MediaRelayed  int64 `json:"media_relayed"`
	MediaFailed   int64 `json:"media_failed"`
	NotifyFailed  int64 `json:"notify_failed"`
}

// NewMetrics creates a metrics collector backed by its own registry
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
				Name: "relay_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 30, 120, 300},
			},
			[]string{"method", "path"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_sessions_active",
				Help: "Number of sessions held in the registry",
			},
		),
		SessionCreations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_session_creations_total",
				Help: "Session creations by outcome",
			},
			[]string{"outcome"},
		),
		CreationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "relay_session_creation_duration_seconds",
				Help:    "Time until a session client became ready",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 200, 320},
			},
		),
		StateTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_state_transitions_total",
				Help: "Observed connection state transitions",
			},
			[]string{"state"},
		),
		SessionsCancelled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_sessions_cancelled_total",
				Help: "Cancelled sessions by mode",
			},
			[]string{"mode"},
		),
		ProcessesReaped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_processes_reaped_total",
				Help: "Forced client process terminations by outcome",
			},
			[]string{"outcome"},
		),
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_notifications_total",
				Help: "Outbound notifications by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		MediaRelayed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_media_total",
				Help: "Group image relays by outcome",
			},
			[]string{"outcome"},
		),
		MediaDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "relay_media_duration_seconds",
				Help:    "End to end media relay duration",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_ws_connections",
				Help: "Number of active push channel connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_ws_messages_total",
				Help: "Push channel messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// Handler exposes the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SetSessionsActive sets the registry size
func (m *Metrics) SetSessionsActive(count int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(count))
}

// RecordCreation records the outcome of one session creation
func (m *Metrics) RecordCreation(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SessionCreations.WithLabelValues(outcome).Inc()
	m.CreationDuration.Observe(duration.Seconds())
}

// RecordStateTransition counts a connection state observation
func (m *Metrics) RecordStateTransition(state string) {
	if m == nil {
		return
	}
	m.StateTransitions.WithLabelValues(state).Inc()
}

// RecordCancel counts a cancellation, mode is "graceful" or "forced"
func (m *Metrics) RecordCancel(mode string) {
	if m == nil {
		return
	}
	m.SessionsCancelled.WithLabelValues(mode).Inc()
}

// RecordReap counts a forced process termination attempt
func (m *Metrics) RecordReap(killed bool) {
	if m == nil {
		return
	}
	outcome := "killed"
	if !killed {
		outcome = "missed"
	}
	m.ProcessesReaped.WithLabelValues(outcome).Inc()
}

// RecordNotification counts an outbound notification
func (m *Metrics) RecordNotification(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
		m.mu.Lock()
		m.snapshot.NotifyFailed++
		m.mu.Unlock()
	}
	m.NotificationsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordMedia records one media relay attempt
func (m *Metrics) RecordMedia(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.MediaRelayed.WithLabelValues(outcome).Inc()
	m.MediaDuration.Observe(duration.Seconds())

	m.mu.Lock()
	if outcome == "relayed" {
		m.snapshot.MediaRelayed++
	} else {
		m.snapshot.MediaFailed++
	}
	m.mu.Unlock()
}

// RecordWSMessage records a push channel message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments push channel connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements push channel connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// Snapshot returns a copy of the running totals
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// UptimeSeconds returns how long the collector has been running
func (m *Metrics) UptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}
