package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "codepilot"

// Metrics holds all Prometheus metrics. Each instance owns its registry, so
// tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Process metrics
	ProcessesActive     prometheus.Gauge
	ProcessesSpawned    prometheus.Counter
	ProcessesExited     *prometheus.CounterVec
	ProcessesTerminated *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Workspace metrics
	WorkspaceOps      *prometheus.CounterVec
	WorkspaceDuration *prometheus.HistogramVec

	// Generation metrics
	Generations        *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec

	// Upstream breaker state, 0 closed, 1 half-open, 2 open
	BreakerState *prometheus.GaugeVec

	startTime time.Time
	snapshot  Snapshot
	mu        sync.RWMutex
}

// Snapshot holds current values for the JSON health endpoint.
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveConnections int64   `json:"active_connections"`
	ActiveProcesses   int64   `json:"active_processes"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector on a fresh registry.
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
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "route"},
		),

		ProcessesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "processes_active",
				Help:      "Number of shell processes currently registered",
			},
		),
		ProcessesSpawned: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "processes_spawned_total",
				Help:      "Total number of shell processes started",
			},
		),
		ProcessesExited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "processes_exited_total",
				Help:      "Shell processes that finished, by outcome",
			},
			[]string{"outcome"},
		),
		ProcessesTerminated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "processes_terminated_total",
				Help:      "Shell processes killed by the server, by reason",
			},
			[]string{"reason"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		WorkspaceOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workspace_operations_total",
				Help:      "Workspace file operations, by result",
			},
			[]string{"op", "result"},
		),
		WorkspaceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workspace_operation_duration_seconds",
				Help:      "Workspace file operation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2.5},
			},
			[]string{"op"},
		),

		Generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Code generation requests, by provider and result",
			},
			[]string{"provider", "result"},
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Code generation latency in seconds",
				Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 60, 120},
			},
			[]string{"provider"},
		),

		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "upstream_breaker_state",
				Help:      "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
			},
			[]string{"upstream"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration, respSize int64) {
	code := strconv.Itoa(status)
	m.RequestsTotal.WithLabelValues(method, route, code).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	if respSize >= 0 {
		m.ResponseSize.WithLabelValues(method, route).Observe(float64(respSize))
	}

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status >= 400 {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SetProcessesActive mirrors the process registry size.
func (m *Metrics) SetProcessesActive(count int) {
	m.ProcessesActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveProcesses = int64(count)
	m.mu.Unlock()
}

// IncProcessesSpawned counts a successful spawn.
func (m *Metrics) IncProcessesSpawned() {
	m.ProcessesSpawned.Inc()
}

// RecordProcessExit counts a finished process. outcome is one of
// "success", "failure", "signaled" or "spawn_failed".
func (m *Metrics) RecordProcessExit(outcome string) {
	m.ProcessesExited.WithLabelValues(outcome).Inc()
}

// RecordTermination counts processes killed for reason ("disconnect",
// "delete", "stop", "shutdown").
func (m *Metrics) RecordTermination(reason string, count int) {
	if count <= 0 {
		return
	}
	m.ProcessesTerminated.WithLabelValues(reason).Add(float64(count))
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// RecordWorkspaceOp records a workspace operation and its latency.
func (m *Metrics) RecordWorkspaceOp(op, result string, duration time.Duration) {
	m.WorkspaceOps.WithLabelValues(op, result).Inc()
	m.WorkspaceDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordGeneration records a code generation call.
func (m *Metrics) RecordGeneration(provider, result string, duration time.Duration) {
	m.Generations.WithLabelValues(provider, result).Inc()
	m.GenerationDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// SetBreakerState records an upstream breaker transition.
func (m *Metrics) SetBreakerState(upstream string, state int) {
	m.BreakerState.WithLabelValues(upstream).Set(float64(state))
}

// Snapshot returns the current summary values.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
