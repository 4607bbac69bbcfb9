package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Exporter publishes finalized tick records as Prometheus metrics.
// Wire it to a Recording with WithObserver(exp.Observe).
type Exporter struct {
	ticks        *prometheus.CounterVec
	phaseSeconds *prometheus.HistogramVec
	mutations    prometheus.Histogram
	patchBytes   prometheus.Histogram
	selectors    prometheus.Counter
	nodesTouched prometheus.Counter
	guardrails   *prometheus.CounterVec
	lastTickID   prometheus.Gauge
}

// phases lists the histogram label values in a fixed order.
var phases = []string{"script", "style", "layout", "render", "total"}

// NewExporter creates the tick metrics and registers them with reg.
func NewExporter(reg prometheus.Registerer) (*Exporter, error) {
	e := &Exporter{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crust_ticks_total",
			Help: "Finalized ticks by result.",
		}, []string{"result"}),
		phaseSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crust_tick_phase_seconds",
			Help:    "Time spent per tick phase.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"phase"}),
		mutations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crust_tick_dom_mutations",
			Help:    "Patch ops emitted per tick.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		patchBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crust_tick_patch_bytes",
			Help:    "Estimated patch payload size per tick.",
			Buckets: prometheus.ExponentialBuckets(16, 4, 10),
		}),
		selectors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crust_selectors_evaluated_total",
			Help: "Selector evaluations recorded inside ticks.",
		}),
		nodesTouched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crust_nodes_touched_total",
			Help: "Nodes touched inside ticks.",
		}),
		guardrails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crust_guardrail_events_total",
			Help: "Guardrail events by kind and phase.",
		}, []string{"kind", "phase"}),
		lastTickID: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crust_last_tick_id",
			Help: "Id of the most recently finalized tick.",
		}),
	}

	for _, c := range []prometheus.Collector{
		e.ticks, e.phaseSeconds, e.mutations, e.patchBytes,
		e.selectors, e.nodesTouched, e.guardrails, e.lastTickID,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register tick metrics: %w", err)
		}
	}
	return e, nil
}

// Observe folds one finalized record into the metrics.
func (e *Exporter) Observe(t TickTelemetry) {
	e.ticks.WithLabelValues(string(t.Result)).Inc()

	ms := []float64{t.Durations.ScriptMS, t.Durations.StyleMS, t.Durations.LayoutMS, t.Durations.RenderMS, t.Durations.TotalMS}
	for i, phase := range phases {
		e.phaseSeconds.WithLabelValues(phase).Observe(ms[i] / 1000)
	}

	e.mutations.Observe(float64(t.Work.DOMMutations))
	e.patchBytes.Observe(float64(t.Work.PatchBytes))
	e.selectors.Add(float64(t.Work.SelectorsEvaluated))
	e.nodesTouched.Add(float64(t.Work.NodesTouched))
	e.lastTickID.Set(float64(t.TickID))

	if t.Guardrail != nil {
		phase := t.Guardrail.Phase
		if phase == "" {
			phase = "unknown"
		}
		e.guardrails.WithLabelValues(string(t.Guardrail.Kind), phase).Inc()
	}
}
