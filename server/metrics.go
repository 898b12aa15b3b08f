package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/redboxdb"
)

// Metrics bundles the server's Prometheus collectors on a private
// registry.
type Metrics struct {
	registry *prometheus.Registry

	CommandsTotal     *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	OpenDatabases     prometheus.Gauge
	ActiveConnections prometheus.Gauge

	engineOps        *prometheus.CounterVec
	engineOpDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the server collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "redboxdb",
			Subsystem: "server",
			Name:      "commands_total",
			Help:      "Wire commands processed, by command and status.",
		}, []string{"cmd", "status"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "redboxdb",
			Subsystem: "server",
			Name:      "command_duration_seconds",
			Help:      "Wire command handling latency.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}, []string{"cmd"}),
		OpenDatabases: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "redboxdb",
			Subsystem: "server",
			Name:      "open_databases",
			Help:      "Databases currently open in the catalog.",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "redboxdb",
			Subsystem: "server",
			Name:      "active_connections",
			Help:      "Client connections currently open.",
		}),
		engineOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "redboxdb",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Engine operations, by operation and status.",
		}, []string{"op", "status"}),
		engineOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "redboxdb",
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"op"}),
	}

	m.registry.MustRegister(
		m.CommandsTotal,
		m.CommandDuration,
		m.OpenDatabases,
		m.ActiveConnections,
		m.engineOps,
		m.engineOpDuration,
	)

	return m
}

// Handler returns the /metrics HTTP handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Collector returns a redboxdb.MetricsCollector recording engine
// operations into the server's registry.
func (m *Metrics) Collector() redboxdb.MetricsCollector {
	return &prometheusCollector{m: m}
}

// prometheusCollector adapts the engine's MetricsCollector seam onto
// Prometheus.
type prometheusCollector struct {
	m *Metrics
}

func (c *prometheusCollector) record(op string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.m.engineOps.WithLabelValues(op, status).Inc()
	c.m.engineOpDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (c *prometheusCollector) RecordInsert(d time.Duration, err error) {
	c.record("insert", d, err)
}

func (c *prometheusCollector) RecordSearch(_ int, d time.Duration, err error) {
	c.record("search", d, err)
}

func (c *prometheusCollector) RecordRemove(d time.Duration, err error) {
	c.record("remove", d, err)
}

func (c *prometheusCollector) RecordUpdate(d time.Duration, err error) {
	c.record("update", d, err)
}
