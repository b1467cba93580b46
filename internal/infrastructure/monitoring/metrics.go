package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Grading metrics
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	MessagesDropped  *prometheus.CounterVec
	AnalyzerFindings *prometheus.CounterVec
	SessionsActive   prometheus.Gauge
	HostsAvailable   prometheus.Gauge
	BreakerOpen      *prometheus.GaugeVec

	// Registry metrics
	Exercises *prometheus.GaugeVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot
	mu       sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests  int64            `json:"total_requests"`
	TotalErrors    int64            `json:"total_errors"`
	RunsByStatus   map[string]int64 `json:"runs_by_status"`
	ActiveSessions int64            `json:"active_sessions"`
	UptimeSeconds  float64          `json:"uptime_seconds"`
	AvgRequestMS   float64          `json:"avg_request_ms"`

	totalDuration float64
}

// NewMetrics creates a collector backed by its own registry
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
		snapshot:  MetricsSnapshot{RunsByStatus: make(map[string]int64)},

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patternlab_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "patternlab_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "patternlab_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "patternlab_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patternlab_grading_runs_total",
				Help: "Finished grading runs by framework and terminal status",
			},
			[]string{"framework", "status"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "patternlab_grading_run_duration_seconds",
				Help:    "Wall time from submission to terminal status",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2, 3, 5, 10},
			},
			[]string{"framework", "status"},
		),
		MessagesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patternlab_grading_messages_dropped_total",
				Help: "Host messages ignored by the coordinator",
			},
			[]string{"reason"},
		),
		AnalyzerFindings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patternlab_analyzer_findings_total",
				Help: "Skeleton lines flagged as leaking implementation",
			},
			[]string{"rule"},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "patternlab_sessions_active",
				Help: "Number of open grading sessions",
			},
		),
		HostsAvailable: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "patternlab_sandbox_hosts_available",
				Help: "Prewarmed sandbox hosts ready to hand out",
			},
		),
		BreakerOpen: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "patternlab_breaker_open",
				Help: "1 when the framework circuit breaker is open",
			},
			[]string{"framework"},
		),

		Exercises: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "patternlab_registry_exercises",
				Help: "Number of exercises in the registry",
			},
			[]string{"framework"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "patternlab_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patternlab_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "patternlab_uptime_seconds",
			Help: "Backend uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry to expose via promhttp
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordRun records a run reaching a terminal status
func (m *Metrics) RecordRun(framework, status string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(framework, status).Inc()
	m.RunDuration.WithLabelValues(framework, status).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.RunsByStatus[status]++
	m.mu.Unlock()
}

// RecordDroppedMessage counts a stale or malformed host message
func (m *Metrics) RecordDroppedMessage(reason string) {
	m.MessagesDropped.WithLabelValues(reason).Inc()
}

// RecordFinding counts an analyzer finding
func (m *Metrics) RecordFinding(rule string) {
	m.AnalyzerFindings.WithLabelValues(rule).Inc()
}

// SetSessionsActive sets the number of open sessions
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveSessions = int64(count)
	m.mu.Unlock()
}

// SetHostsAvailable sets the number of prewarmed hosts
func (m *Metrics) SetHostsAvailable(count int) {
	m.HostsAvailable.Set(float64(count))
}

// SetBreakerOpen flags a framework breaker as open or closed
func (m *Metrics) SetBreakerOpen(framework string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerOpen.WithLabelValues(framework).Set(v)
}

// SetExercises sets the registry size for a framework
func (m *Metrics) SetExercises(framework string, count int) {
	m.Exercises.WithLabelValues(framework).Set(float64(count))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// Snapshot returns current values for the JSON status endpoint
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.RunsByStatus = make(map[string]int64, len(m.snapshot.RunsByStatus))
	for k, v := range m.snapshot.RunsByStatus {
		s.RunsByStatus[k] = v
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	if s.TotalRequests > 0 {
		s.AvgRequestMS = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	return s
}
