package monitoring

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Orchestrator metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OperationsActive  prometheus.Gauge

	// Transfer metrics
	TransferBytes     prometheus.Counter
	TransferRedirects prometheus.Counter

	// Install metrics
	ExtractionDuration prometheus.Histogram

	// Uninstall metrics
	RemovalAttempts *prometheus.CounterVec

	// Catalog metrics
	CatalogLoads *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	requests    atomic.Int64
	errors      atomic.Int64
	active      atomic.Int64
	transferred atomic.Int64
}

// Snapshot holds current values for the health endpoint
type Snapshot struct {
	TotalRequests    int64   `json:"totalRequests"`
	TotalErrors      int64   `json:"totalErrors"`
	ActiveOperations int64   `json:"activeOperations"`
	BytesTransferred int64   `json:"bytesTransferred"`
	UptimeSeconds    float64 `json:"uptimeSeconds"`
}

// NewMetricsWith registers launcher metrics with reg
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launcher_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_operations_total",
				Help: "Finished install/update/repair/uninstall operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launcher_operation_duration_seconds",
				Help:    "Wall time of orchestrator operations",
				Buckets: []float64{.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"operation"},
		),
		OperationsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_operations_active",
				Help: "Operations currently running",
			},
		),

		TransferBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "launcher_transfer_bytes_total",
				Help: "Bytes written to disk by transfers",
			},
		),
		TransferRedirects: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "launcher_transfer_redirects_total",
				Help: "HTTP redirects followed by transfers",
			},
		),

		ExtractionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "launcher_extraction_duration_seconds",
				Help:    "Archive extraction time",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),

		RemovalAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_removal_attempts_total",
				Help: "Install directory removal attempts",
			},
			[]string{"strategy", "result"},
		),

		CatalogLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_catalog_loads_total",
				Help: "Catalog loads by source",
			},
			[]string{"source"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_ws_connections",
				Help: "Open WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_ws_messages_total",
				Help: "WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_uptime_seconds",
				Help: "Daemon uptime",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.requests.Add(1)
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.errors.Add(1)
	}
}

// OperationStarted marks an orchestrator operation as running
func (m *Metrics) OperationStarted() {
	if m == nil {
		return
	}
	m.OperationsActive.Inc()
	m.active.Add(1)
}

// OperationFinished records a terminal outcome
func (m *Metrics) OperationFinished(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OperationsActive.Dec()
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.active.Add(-1)
}

// AddTransferBytes counts bytes written by a transfer
func (m *Metrics) AddTransferBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.TransferBytes.Add(float64(n))
	m.transferred.Add(n)
}

// IncRedirects counts a followed redirect
func (m *Metrics) IncRedirects() {
	if m == nil {
		return
	}
	m.TransferRedirects.Inc()
}

// ObserveExtraction records how long an extraction took
func (m *Metrics) ObserveExtraction(duration time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionDuration.Observe(duration.Seconds())
}

// RecordRemoval records one removal attempt
func (m *Metrics) RecordRemoval(strategy string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.RemovalAttempts.WithLabelValues(strategy, result).Inc()
}

// RecordCatalogLoad records where the catalog came from
func (m *Metrics) RecordCatalogLoad(source string) {
	if m == nil {
		return
	}
	m.CatalogLoads.WithLabelValues(source).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// GetSnapshot returns current values and refreshes the uptime gauge
func (m *Metrics) GetSnapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	uptime := time.Since(m.startTime).Seconds()
	m.Uptime.Set(uptime)

	return Snapshot{
		TotalRequests:    m.requests.Load(),
		TotalErrors:      m.errors.Load(),
		ActiveOperations: m.active.Load(),
		BytesTransferred: m.transferred.Load(),
		UptimeSeconds:    uptime,
	}
}
