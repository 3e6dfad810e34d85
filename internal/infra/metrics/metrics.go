// Package metrics provides Prometheus metrics for the idle monitor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osa030/autologout/internal/app/idle"
)

// Metrics holds all Prometheus metrics for the monitor.
type Metrics struct {
	EventsTotal      *prometheus.CounterVec
	LogoutCallsTotal *prometheus.CounterVec
	SessionState     *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autologout_events_total",
				Help: "Total idle monitor events by type.",
			},
			[]string{"type"},
		),
		LogoutCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autologout_logout_calls_total",
				Help: "Total logout calls by result.",
			},
			[]string{"result"},
		),
		SessionState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "autologout_session_state",
				Help: "1 for the current session state, 0 otherwise.",
			},
			[]string{"state"},
		),
		registry: reg,
	}

	reg.MustRegister(m.EventsTotal)
	reg.MustRegister(m.LogoutCallsTotal)
	reg.MustRegister(m.SessionState)

	m.setState(idle.StateActive)
	return m
}

// Handler returns an http.Handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe records a monitor event.
func (m *Metrics) Observe(e idle.Event) {
	m.EventsTotal.WithLabelValues(e.Type.String()).Inc()
	m.setState(e.State)

	if e.Type == idle.EventLogoutCompleted {
		result := "ok"
		if e.Err != nil {
			result = "error"
		}
		m.LogoutCallsTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) setState(current idle.State) {
	for _, s := range []idle.State{idle.StateActive, idle.StateWarning, idle.StateLoggedOut} {
		v := 0.0
		if s == current {
			v = 1
		}
		m.SessionState.WithLabelValues(s.String()).Set(v)
	}
}
