package monitoring

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Syscall metrics
	SyscallsTotal *prometheus.CounterVec

	// Object metrics
	ObjectsLive    *prometheus.GaugeVec
	ObjectsCreated *prometheus.CounterVec

	// Scheduler metrics
	ContextSwitches prometheus.Counter
	ReadyThreads    prometheus.Gauge

	// Port metrics
	PortMessages prometheus.Counter

	// Event metrics
	EventsTotal *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Counters mirrored for the JSON introspection API.
	snapshot snapshot
}

// snapshot tracks current values for the JSON API without scraping.
type snapshot struct {
	syscalls      atomic.Int64
	portMessages  atomic.Int64
	events        atomic.Int64
	switches      atomic.Int64
	wsConnections atomic.Int64
}

// Snapshot is the JSON form of the mirrored counters.
type Snapshot struct {
	Syscalls      int64   `json:"syscalls"`
	PortMessages  int64   `json:"port_messages"`
	Events        int64   `json:"events"`
	Switches      int64   `json:"context_switches"`
	WSConnections int64   `json:"ws_connections"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kernel_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		SyscallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_syscalls_total",
				Help: "Total number of syscalls by number and outcome",
			},
			[]string{"syscall", "status"},
		),

		ObjectsLive: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kernel_objects_live",
				Help: "Live kernel objects by kind",
			},
			[]string{"kind"},
		),
		ObjectsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_objects_created_total",
				Help: "Total kernel objects created by kind",
			},
			[]string{"kind"},
		),

		ContextSwitches: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "kernel_context_switches_total",
				Help: "Total scheduler dispatches",
			},
		),
		ReadyThreads: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_ready_threads",
				Help: "Threads in the ready queues",
			},
		),

		PortMessages: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "kernel_port_messages_total",
				Help: "Total messages posted to ports",
			},
		),

		EventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_events_total",
				Help: "Total lifecycle events published by kind",
			},
			[]string{"kind"},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_ws_connections",
				Help: "Active WebSocket event stream connections",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}
}

// IncSyscalls records one syscall invocation.
func (m *Metrics) IncSyscalls(name, status string) {
	m.SyscallsTotal.WithLabelValues(name, status).Inc()
	m.snapshot.syscalls.Add(1)
}

// IncPortMessages records one posted port message.
func (m *Metrics) IncPortMessages() {
	m.PortMessages.Inc()
	m.snapshot.portMessages.Add(1)
}

// IncEvents records one published lifecycle event.
func (m *Metrics) IncEvents(kind string) {
	m.EventsTotal.WithLabelValues(kind).Inc()
	m.snapshot.events.Add(1)
}

// IncObjects records an object creation.
func (m *Metrics) IncObjects(kind string) {
	m.ObjectsLive.WithLabelValues(kind).Inc()
	m.ObjectsCreated.WithLabelValues(kind).Inc()
}

// DecObjects records an object destruction.
func (m *Metrics) DecObjects(kind string) {
	m.ObjectsLive.WithLabelValues(kind).Dec()
}

// IncContextSwitches records one scheduler dispatch.
func (m *Metrics) IncContextSwitches() {
	m.ContextSwitches.Inc()
	m.snapshot.switches.Add(1)
}

// SetReadyThreads records the ready queue depth.
func (m *Metrics) SetReadyThreads(n int) {
	m.ReadyThreads.Set(float64(n))
}

// IncWSConnections records one WebSocket connection opening.
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.snapshot.wsConnections.Add(1)
}

// DecWSConnections records one WebSocket connection closing.
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.snapshot.wsConnections.Add(-1)
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// GetSnapshot returns the mirrored counters for the JSON API.
func (m *Metrics) GetSnapshot() Snapshot {
	uptime := time.Since(m.startTime).Seconds()
	m.Uptime.Set(uptime)
	return Snapshot{
		Syscalls:      m.snapshot.syscalls.Load(),
		PortMessages:  m.snapshot.portMessages.Load(),
		Events:        m.snapshot.events.Load(),
		Switches:      m.snapshot.switches.Load(),
		WSConnections: m.snapshot.wsConnections.Load(),
		UptimeSeconds: uptime,
	}
}
