package metrics

import (
	"net/http"
	"time"

	"github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/internal/core/port"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kwb"

// Metrics owns a private registry so several bridges (and tests) can coexist
// in one process.
type Metrics struct {
	registry *prometheus.Registry

	operationSeconds *prometheus.HistogramVec
	events           *prometheus.CounterVec
	scrapes          *prometheus.CounterVec
	failures         prometheus.Gauge
	available        prometheus.Gauge
	totals           *prometheus.GaugeVec
}

var _ port.HeaterObserver = (*Metrics)(nil)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of controller operations.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10},
		}, []string{"operation"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Protocol events such as checksum errors or failed scrapes.",
		}, []string{"event"}),
		scrapes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Poll cycles by result.",
		}, []string{"result"}),
		failures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consecutive_failures",
			Help:      "Failed poll cycles since the last success.",
		}),
		available: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heater_available",
			Help:      "1 when the heater answered recently enough.",
		}),
		totals: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heater_total",
			Help:      "Accumulated heater values, keyed by sensor id.",
		}, []string{"sensor"}),
	}
	m.registry.MustRegister(
		m.operationSeconds,
		m.events,
		m.scrapes,
		m.failures,
		m.available,
		m.totals,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Instrument feeds controller timings and protocol events into the registry.
func (m *Metrics) Instrument() kwb.Instrument {
	return kwb.Instrument{
		RecordTime: func(name string, elapsed time.Duration) {
			m.operationSeconds.WithLabelValues(name).Observe(elapsed.Seconds())
		},
		RecordEvent: func(name string) {
			m.events.WithLabelValues(name).Inc()
		},
	}
}

func (m *Metrics) ObserveScrape(ok bool, consecutiveFailures uint, available bool) {
	if ok {
		m.scrapes.WithLabelValues("success").Inc()
	} else {
		m.scrapes.WithLabelValues("failure").Inc()
	}
	m.failures.Set(float64(consecutiveFailures))
	m.available.Set(boolToFloat(available))
}

func (m *Metrics) ObserveTotals(totals domain.HeaterTotals) {
	for key, value := range totals.Snapshot() {
		m.totals.WithLabelValues(key).Set(value.Float())
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
