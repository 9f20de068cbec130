// Package metrics provides Prometheus metrics for the workflow engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for flowcore.
type Metrics struct {
	TransitionsTotal   *prometheus.CounterVec
	EventsIgnored      *prometheus.CounterVec
	ReviewsActive      prometheus.Gauge
	PollDuration       *prometheus.HistogramVec
	NotificationsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowcore_transitions_total",
				Help: "State machine transitions by machine, source state and event kind.",
			},
			[]string{"machine", "from", "event"},
		),
		EventsIgnored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowcore_events_ignored_total",
				Help: "Events dropped because no transition was defined or a guard rejected them.",
			},
			[]string{"machine", "event"},
		),
		ReviewsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "flowcore_reviews_active",
				Help: "Number of PR reviews currently in the reviewing or external-review state.",
			},
		),
		PollDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowcore_poll_duration_seconds",
				Help:    "GitHub poll duration per project.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"project"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowcore_notifications_total",
				Help: "Review notifications delivered, by outcome and result.",
			},
			[]string{"outcome", "result"},
		),
		registry: reg,
	}

	reg.MustRegister(m.TransitionsTotal)
	reg.MustRegister(m.EventsIgnored)
	reg.MustRegister(m.ReviewsActive)
	reg.MustRegister(m.PollDuration)
	reg.MustRegister(m.NotificationsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTransition increments the transition counter.
func (m *Metrics) RecordTransition(machine, from, event string) {
	m.TransitionsTotal.WithLabelValues(machine, from, event).Inc()
}

// RecordIgnored increments the ignored-event counter.
func (m *Metrics) RecordIgnored(machine, event string) {
	m.EventsIgnored.WithLabelValues(machine, event).Inc()
}

// SetActiveReviews sets the active review gauge.
func (m *Metrics) SetActiveReviews(count float64) {
	m.ReviewsActive.Set(count)
}

// ObservePoll records one poll cycle's duration.
func (m *Metrics) ObservePoll(project string, seconds float64) {
	m.PollDuration.WithLabelValues(project).Observe(seconds)
}

// RecordNotification increments the notification counter.
func (m *Metrics) RecordNotification(outcome, result string) {
	m.NotificationsTotal.WithLabelValues(outcome, result).Inc()
}
