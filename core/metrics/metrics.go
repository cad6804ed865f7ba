// Package metrics exposes Prometheus collectors for the bot and an ops HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "todobot"

// Recorder holds the bot collectors on a private registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	updates      *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	dialogEvents *prometheus.CounterVec
	sessions     prometheus.Gauge
	tasks        *prometheus.CounterVec
}

// New registers the bot collectors together with the Go and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "updates_total",
				Help:      "Telegram updates received by kind",
			},
			[]string{"kind"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fsm_transitions_total",
				Help:      "Committed dialogue state transitions",
			},
			[]string{"from", "to"},
		),
		dialogEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dialog_events_total",
				Help:      "Dialogue events dispatched by state, event kind and status",
			},
			[]string{"state", "kind", "status"},
		),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Dialogue sessions held in memory",
		}),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_recorded_total",
				Help:      "Finalized tasks handed to a sink by status",
			},
			[]string{"sink", "status"},
		),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.updates,
		r.transitions,
		r.dialogEvents,
		r.sessions,
		r.tasks,
	)
	return r
}

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// IncUpdate counts one inbound update of kind.
func (r *Recorder) IncUpdate(kind string) {
	if r == nil {
		return
	}
	r.updates.WithLabelValues(kind).Inc()
}

// ObserveTransition counts a committed transition.
func (r *Recorder) ObserveTransition(from, to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(from, to).Inc()
}

// ObserveDialogEvent counts one dispatched dialogue event.
func (r *Recorder) ObserveDialogEvent(state, kind, status string) {
	if r == nil {
		return
	}
	r.dialogEvents.WithLabelValues(state, kind, status).Inc()
}

// SetSessions reports the current number of sessions.
func (r *Recorder) SetSessions(n int) {
	if r == nil {
		return
	}
	r.sessions.Set(float64(n))
}

// ObserveTask counts one task record attempt outcome.
func (r *Recorder) ObserveTask(sink, status string) {
	if r == nil {
		return
	}
	r.tasks.WithLabelValues(sink, status).Inc()
}
