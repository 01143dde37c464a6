package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors exported by the sale engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
	runs        *prometheus.CounterVec
	finalized   prometheus.Counter
	lastRun     prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ranch",
			Subsystem: "sales",
			Name:      "transitions_total",
			Help:      "Sale lifecycle transitions applied, by event type.",
		}, []string{"event"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ranch",
			Subsystem: "reconciler",
			Name:      "runs_total",
			Help:      "Reconciler passes, by result.",
		}, []string{"result"}),
		finalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ranch",
			Subsystem: "reconciler",
			Name:      "finalized_sales_total",
			Help:      "Sales finalized by the background reconciler.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ranch",
			Subsystem: "reconciler",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful reconciler pass.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.transitions, m.runs, m.finalized, m.lastRun)
	}
	return m
}

// Transition counts one applied lifecycle event.
func (m *Metrics) Transition(event string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(event).Inc()
}

// Run records the outcome of a reconciler pass.
func (m *Metrics) Run(result string, finalized int, finishedUnix float64) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
	if result == "success" {
		m.finalized.Add(float64(finalized))
		m.lastRun.Set(finishedUnix)
	}
}
