package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the session module.
type Metrics struct {
	// Lifecycle transitions by target status
	Transitions *prometheus.CounterVec

	// Wall-clock length of ended sessions
	SessionDuration prometheus.Histogram

	// Participant joins and leaves
	ParticipantEvents *prometheus.CounterVec

	// Media capability acquire/release failures by kind
	MediaFailures *prometheus.CounterVec

	// Sessions currently held by the registry
	ActiveSessions prometheus.Gauge
}

// New creates a new Metrics instance with all session module metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "telesession_session_transitions_total",
			Help: "Total session lifecycle transitions by target status",
		}, []string{"to"}), // to: "active", "paused", "ended"

		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "telesession_session_duration_seconds",
			Help:    "Elapsed time between session start and end",
			Buckets: []float64{60, 300, 600, 1200, 1800, 2700, 3600, 7200, 14400},
		}),

		ParticipantEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "telesession_session_participant_events_total",
			Help: "Total participant membership changes by event",
		}, []string{"event"}), // event: "joined", "left"

		MediaFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "telesession_session_media_failures_total",
			Help: "Total media capability failures by capture kind",
		}, []string{"kind"}),

		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "telesession_sessions_active",
			Help: "Number of sessions currently registered",
		}),
	}
}

// IncrementTransition records a lifecycle transition.
func (m *Metrics) IncrementTransition(to string) {
	if m != nil {
		m.Transitions.WithLabelValues(to).Inc()
	}
}

// ObserveSessionDuration records the final length of an ended session.
func (m *Metrics) ObserveSessionDuration(d time.Duration) {
	if m != nil {
		m.SessionDuration.Observe(d.Seconds())
	}
}

// IncrementParticipantEvent records a join or leave.
func (m *Metrics) IncrementParticipantEvent(event string) {
	if m != nil {
		m.ParticipantEvents.WithLabelValues(event).Inc()
	}
}

// IncrementMediaFailure records a failed media capability operation.
func (m *Metrics) IncrementMediaFailure(kind string) {
	if m != nil {
		m.MediaFailures.WithLabelValues(kind).Inc()
	}
}

// SessionOpened tracks a session entering the registry.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.ActiveSessions.Inc()
	}
}

// SessionClosed tracks a session leaving the registry.
func (m *Metrics) SessionClosed() {
	if m != nil {
		m.ActiveSessions.Dec()
	}
}
