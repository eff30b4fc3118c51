// Package metrics holds the prometheus collectors for the hierarchy and the
// phase scheduler. Every method is safe on a nil *Collectors so components
// can run without metrics.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "scenetree"

// Collectors groups every metric the runtime records.
type Collectors struct {
	Callbacks        *prometheus.CounterVec
	CallbackPanics   *prometheus.CounterVec
	PhaseDuration    *prometheus.HistogramVec
	Nodes            prometheus.Gauge
	PauseTransitions *prometheus.CounterVec
	Scenes           prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		Callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callbacks_total",
			Help:      "Behaviour phase callbacks invoked, by phase.",
		}, []string{"phase"}),
		CallbackPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_panics_total",
			Help:      "Behaviour callbacks that panicked and were recovered, by phase.",
		}, []string{"phase"}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time of one scheduler pass over the tree.",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"phase"}),
		Nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes",
			Help:      "Registered nodes in the behaviour tree.",
		}),
		PauseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pause_transitions_total",
			Help:      "Effective pause state transitions, by kind (pause|unpause).",
		}, []string{"kind"}),
		Scenes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scenes",
			Help:      "Scene instances currently registered.",
		}),
	}
	for _, col := range []prometheus.Collector{
		c.Callbacks, c.CallbackPanics, c.PhaseDuration, c.Nodes, c.PauseTransitions, c.Scenes,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return c, nil
}

func (c *Collectors) ObserveCallback(phase string) {
	if c == nil {
		return
	}
	c.Callbacks.WithLabelValues(phase).Inc()
}

func (c *Collectors) ObservePanic(phase string) {
	if c == nil {
		return
	}
	c.CallbackPanics.WithLabelValues(phase).Inc()
}

func (c *Collectors) ObservePhase(phase string, d time.Duration) {
	if c == nil {
		return
	}
	c.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (c *Collectors) SetNodes(n int) {
	if c == nil {
		return
	}
	c.Nodes.Set(float64(n))
}

func (c *Collectors) SetScenes(n int) {
	if c == nil {
		return
	}
	c.Scenes.Set(float64(n))
}

func (c *Collectors) ObserveTransition(kind string) {
	if c == nil {
		return
	}
	c.PauseTransitions.WithLabelValues(kind).Inc()
}

// Dump writes every gathered family in the Prometheus text exposition
// format.
func Dump(g prometheus.Gatherer, w io.Writer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
