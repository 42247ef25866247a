// Package metrics exposes controller counters to Prometheus. Every method is
// safe on a nil *Metrics so tasks can run without instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/signalctl/internal/logic"
)

const namespace = "signalctl"

type Metrics struct {
	registry *prometheus.Registry

	transitions      *prometheus.CounterVec
	samples          prometheus.Counter
	queueFull        prometheus.Counter
	readErrors       *prometheus.CounterVec
	clamps           *prometheus.CounterVec
	debounceRejected prometheus.Counter
	publishErrors    prometheus.Counter
	state            *prometheus.GaugeVec
	mode             prometheus.Gauge
	reading          *prometheus.GaugeVec
}

// New registers the controller collectors plus the Go runtime collectors on a
// private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "State transitions by source and target state.",
		}, []string{"from", "to"}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Raw samples handed to the classifier.",
		}),
		queueFull: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_full_total",
			Help:      "Times the sampler found the sample queue full.",
		}),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peripheral_read_errors_total",
			Help:      "Failed peripheral reads by device.",
		}, []string{"device"}),
		clamps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actuator_clamps_total",
			Help:      "Out-of-range actuator lookups that were clamped.",
		}, []string{"actuator"}),
		debounceRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debounce_rejected_total",
			Help:      "Mode button presses dropped inside the debounce window.",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Events that could not be published.",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "1 for the current state, 0 otherwise.",
		}, []string{"state"}),
		mode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "night_mode",
			Help:      "1 while the alternate (night) mode is active.",
		}),
		reading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "level_percent",
			Help:      "Latest calibrated reading by axis.",
		}, []string{"axis"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transitions,
		m.samples,
		m.queueFull,
		m.readErrors,
		m.clamps,
		m.debounceRejected,
		m.publishErrors,
		m.state,
		m.mode,
		m.reading,
	)

	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Transition counts t and moves the state and mode gauges.
func (m *Metrics) Transition(t logic.Transition) {
	if m == nil {
		return
	}
	if t.From != t.To {
		m.transitions.WithLabelValues(string(t.From), string(t.To)).Inc()
	}
	m.SetState(t.To, t.ToMode)
}

// SetState points the state gauge at s and sets the mode gauge.
func (m *Metrics) SetState(s logic.State, mode logic.Mode) {
	if m == nil {
		return
	}
	m.state.Reset()
	m.state.WithLabelValues(string(s)).Set(1)
	if mode == logic.ModeAlternate {
		m.mode.Set(1)
	} else {
		m.mode.Set(0)
	}
}

func (m *Metrics) Sample() {
	if m == nil {
		return
	}
	m.samples.Inc()
}

func (m *Metrics) Reading(r logic.Reading) {
	if m == nil {
		return
	}
	m.reading.WithLabelValues("water").Set(r.WaterLevel)
	m.reading.WithLabelValues("rain").Set(r.RainLevel)
}

func (m *Metrics) QueueFull() {
	if m == nil {
		return
	}
	m.queueFull.Inc()
}

func (m *Metrics) ReadError(device string) {
	if m == nil {
		return
	}
	m.readErrors.WithLabelValues(device).Inc()
}

func (m *Metrics) Clamp(actuator string) {
	if m == nil {
		return
	}
	m.clamps.WithLabelValues(actuator).Inc()
}

func (m *Metrics) DebounceRejected() {
	if m == nil {
		return
	}
	m.debounceRejected.Inc()
}

func (m *Metrics) PublishError() {
	if m == nil {
		return
	}
	m.publishErrors.Inc()
}
