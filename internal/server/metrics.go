package server

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every Prometheus collector the dispatcher updates. Register
// against a prometheus.Registry and serve it on an HTTP endpoint alongside
// the UDP listener (A3 of the governing design).
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	DroppedTotal     *prometheus.CounterVec
	ActiveMonitors   prometheus.Gauge
	// BusDroppedTotal is registered but nothing increments it: bus.Publish
	// drops events for a full subscriber queue without reporting them, so
	// this counter stays at zero.
	BusDroppedTotal  prometheus.Counter
	CPUPercent       prometheus.Gauge
	MemoryPercent    prometheus.Gauge
}

// NewMetrics constructs and registers every collector on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightres_requests_total",
			Help: "Total response envelopes written, labeled by service_type and status (Updated pushes included).",
		}, []string{"service_type", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flightres_request_duration_seconds",
			Help:    "Handler latency from dispatch until the handler returns; for service 4 this spans the monitor window.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service_type"}),
		DroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightres_dropped_datagrams_total",
			Help: "Datagrams dropped before dispatch, labeled by reason.",
		}, []string{"reason"}),
		ActiveMonitors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flightres_active_monitor_sessions",
			Help: "Number of currently open service-4 monitor sessions.",
		}),
		BusDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flightres_bus_dropped_events_total",
			Help: "Monitor bus events dropped because a subscriber's queue was full.",
		}),
		CPUPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flightres_process_cpu_percent",
			Help: "Most recently sampled process CPU utilization percentage.",
		}),
		MemoryPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flightres_process_memory_percent",
			Help: "Most recently sampled process memory utilization percentage.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.DroppedTotal,
		m.ActiveMonitors,
		m.BusDroppedTotal,
		m.CPUPercent,
		m.MemoryPercent,
	)
	return m
}
