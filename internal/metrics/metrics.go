// Package metrics exposes netwatch load and render counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "netwatch"

// Load results
const (
	ResultPublished  = "published"
	ResultSuperseded = "superseded"
	ResultError      = "error"
)

// Metrics holds the collectors of one process. Each instance owns its
// registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	loads               *prometheus.CounterVec
	loadDuration        prometheus.Histogram
	devices             prometheus.Gauge
	classificationQueue prometheus.Gauge
	viewRenders         *prometheus.CounterVec
}

// New creates and registers the netwatch collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Resource load passes by result.",
		}, []string{"result"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of resource load passes.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		devices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices",
			Help:      "Devices in the published snapshot.",
		}),
		classificationQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "classification_queue",
			Help:      "Devices waiting for classification in the published snapshot.",
		}),
		viewRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_renders_total",
			Help:      "Dashboard views rendered by name.",
		}, []string{"view"}),
	}

	m.registry.MustRegister(
		m.loads,
		m.loadDuration,
		m.devices,
		m.classificationQueue,
		m.viewRenders,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Pre-create the result series so they export zero before the first pass
	for _, r := range []string{ResultPublished, ResultSuperseded, ResultError} {
		m.loads.WithLabelValues(r)
	}

	return m
}

// ObserveLoad counts one finished pass
func (m *Metrics) ObserveLoad(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(result).Inc()
	m.loadDuration.Observe(d.Seconds())
}

// SetInventory records the size of the published snapshot and its queue
func (m *Metrics) SetInventory(devices, queued int) {
	if m == nil {
		return
	}
	m.devices.Set(float64(devices))
	m.classificationQueue.Set(float64(queued))
}

// ViewRendered counts one view render
func (m *Metrics) ViewRendered(name string) {
	if m == nil {
		return
	}
	m.viewRenders.WithLabelValues(name).Inc()
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
