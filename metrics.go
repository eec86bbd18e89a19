package sceneloader

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMetricsNamespace prefixes every metric name.
const DefaultMetricsNamespace = "sceneloader"

// Metrics holds the Prometheus collectors of a manager. Collectors live in
// their own registry so several managers can coexist in one process.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Activations        *prometheus.CounterVec
	Reactivations      prometheus.Counter
	Rejected           prometheus.Counter
	Instantiations     *prometheus.CounterVec
	Failures           *prometheus.CounterVec
	LiveInstances      *prometheus.GaugeVec
	GeneralInitialized prometheus.Gauge
}

// NewMetrics creates and registers the collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultMetricsNamespace
	}
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Activations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "activations_total",
				Help:      "Total number of scene activations handled",
			},
			[]string{"scene"},
		),
		Reactivations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reactivations_total",
				Help:      "Activations of a scene that was still live",
			},
		),
		Rejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejected_activations_total",
				Help:      "Activations dropped because another one was still being handled",
			},
		),
		Instantiations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instantiations_total",
				Help:      "Total number of singleton instances created",
			},
			[]string{"scope"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instantiation_failures_total",
				Help:      "Total number of singleton instantiation failures",
			},
			[]string{"scope"},
		),
		LiveInstances: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "live_instances",
				Help:      "Number of singleton instances currently alive",
			},
			[]string{"scope"},
		),
		GeneralInitialized: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "general_initialized",
				Help:      "1 once general singletons have been created",
			},
		),
	}

	registry.MustRegister(
		m.Activations,
		m.Reactivations,
		m.Rejected,
		m.Instantiations,
		m.Failures,
		m.LiveInstances,
		m.GeneralInitialized,
	)
	return m
}

// Registry returns the registry holding the collectors, for exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) activation(scene string) {
	if m == nil {
		return
	}
	m.Activations.WithLabelValues(scene).Inc()
}

func (m *Metrics) reactivation() {
	if m == nil {
		return
	}
	m.Reactivations.Inc()
}

func (m *Metrics) rejected() {
	if m == nil {
		return
	}
	m.Rejected.Inc()
}

func (m *Metrics) created(scope Scope) {
	if m == nil {
		return
	}
	m.Instantiations.WithLabelValues(string(scope)).Inc()
	m.LiveInstances.WithLabelValues(string(scope)).Inc()
}

func (m *Metrics) destroyed(scope Scope) {
	if m == nil {
		return
	}
	m.LiveInstances.WithLabelValues(string(scope)).Dec()
}

func (m *Metrics) failed(scope Scope) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(string(scope)).Inc()
}

func (m *Metrics) generalReady() {
	if m == nil {
		return
	}
	m.GeneralInitialized.Set(1)
}
