// Package compliance maintains the append-only audit log for one session.
//
// The logger owns the ordered event log outright: writers append through
// LogEvent and its convenience wrappers, readers get independent copies, and
// nothing hands out a live reference to internal state. When audit logging is
// disabled in the session's compliance configuration the logger is inert as a
// whole; it never selectively drops individual events.
//
// Logging can never fail the operation being audited. The in-memory append is
// infallible and sink emission degrades to a counted, logged drop.
package compliance

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"telesession/pkg/requestcontext"
)

// Logger is the per-session compliance logger. Safe for concurrent use.
type Logger struct {
	mu           sync.Mutex
	sessionID    string
	cfg          Config
	events       []Event
	sinkFailures int

	logger *slog.Logger
	sink   Sink
}

// Option configures the Logger.
type Option func(*Logger)

// WithLogger sets the structured logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) {
		l.logger = logger
	}
}

// WithSink sets the diagnostic sink that receives events at the standard and
// detailed log levels.
func WithSink(sink Sink) Option {
	return func(l *Logger) {
		l.sink = sink
	}
}

// New creates the logger for a session and, when audit logging is enabled,
// records the session_started event that opens the log. An unrecognized log
// level falls back to standard.
func New(ctx context.Context, sessionID string, cfg Config, opts ...Option) *Logger {
	if !cfg.LogLevel.IsValid() {
		cfg.LogLevel = LogLevelStandard
	}

	l := &Logger{
		sessionID: sessionID,
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.LogEvent(ctx, Event{Type: EventSessionStarted})
	return l
}

// Enabled reports whether audit logging is active for this session.
func (l *Logger) Enabled() bool {
	return l.cfg.AuditLogging
}

// Config returns the compliance configuration the logger was built with.
func (l *Logger) Config() Config {
	return l.cfg
}

// LogEvent appends one event to the log. The ID and session ID are always
// assigned here; a zero timestamp is filled from the request clock and a
// missing level from the event type's default. No-op when audit logging is
// disabled.
func (l *Logger) LogEvent(ctx context.Context, event Event) {
	if !l.cfg.AuditLogging {
		return
	}

	event.ID = uuid.NewString()
	event.SessionID = l.sessionID
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Level == "" {
		event.Level = event.Type.DefaultLevel()
	}
	// Detach the payload from the caller's map so later mutation cannot
	// reach into the log.
	event.Payload = maps.Clone(event.Payload)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event)
	l.emitLocked(ctx, event)
}

// LogConsent records a consent_given or consent_revoked event.
func (l *Logger) LogConsent(ctx context.Context, participantID, consentType string, granted bool) {
	eventType := EventConsentGiven
	if !granted {
		eventType = EventConsentRevoked
	}

	l.LogEvent(ctx, Event{
		Type:          eventType,
		ParticipantID: participantID,
		Payload: map[string]any{
			"consent_type": consentType,
			"granted":      granted,
		},
	})
}

// LogTechnicalIssue records a technical_issue event carrying the error text.
func (l *Logger) LogTechnicalIssue(ctx context.Context, participantID, issue string) {
	l.LogEvent(ctx, Event{
		Type:          EventTechnicalIssue,
		ParticipantID: participantID,
		Payload: map[string]any{
			"error": issue,
		},
	})
}

// LogSessionEnd records the session_ended event with the final duration,
// connected participant count, and end reason.
func (l *Logger) LogSessionEnd(ctx context.Context, duration time.Duration, participantCount int, reason string) {
	l.LogEvent(ctx, Event{
		Type: EventSessionEnded,
		Payload: map[string]any{
			"duration_seconds":  duration.Seconds(),
			"participant_count": participantCount,
			"reason":            reason,
		},
	})
}

// Events returns an independent copy of the log in append order. Mutating
// the returned slice or its payloads never affects internal state.
func (l *Logger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.copyEventsLocked()
}

// Summary computes the aggregate view of the log.
func (l *Logger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.summaryLocked()
}

// ComplianceScore derives the session's compliance score from the summary.
// Each technical issue costs 10 points from a base of 100. A session without
// an audit trail cannot attest compliance and scores 0.
func (l *Logger) ComplianceScore() int {
	if !l.cfg.AuditLogging {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	score := 100
	for _, event := range l.events {
		if event.Type == EventTechnicalIssue {
			score -= 10
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// SinkFailures returns how many sink emissions have been dropped.
func (l *Logger) SinkFailures() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.sinkFailures
}

// Export assembles the full artifact handed to external audit systems.
func (l *Logger) Export(ctx context.Context) Export {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Export{
		SessionID:  l.sessionID,
		Config:     l.cfg,
		Events:     l.copyEventsLocked(),
		Summary:    l.summaryLocked(),
		ExportedAt: requestcontext.Now(ctx),
	}
}

func (l *Logger) copyEventsLocked() []Event {
	events := make([]Event, len(l.events))
	copy(events, l.events)
	for i := range events {
		events[i].Payload = maps.Clone(events[i].Payload)
	}
	return events
}

func (l *Logger) summaryLocked() Summary {
	summary := Summary{TotalEvents: len(l.events)}

	var startedAt, endedAt *time.Time
	for _, event := range l.events {
		if event.Level == LevelHigh {
			summary.HighComplianceEvents++
		}
		switch event.Type {
		case EventConsentGiven, EventConsentRevoked:
			summary.ConsentEvents++
		case EventTechnicalIssue:
			summary.TechnicalIssues++
		case EventSessionStarted:
			if startedAt == nil {
				ts := event.Timestamp
				startedAt = &ts
			}
		case EventSessionEnded:
			if endedAt == nil {
				ts := event.Timestamp
				endedAt = &ts
			}
		}
	}

	if startedAt != nil && endedAt != nil {
		duration := endedAt.Sub(*startedAt)
		summary.SessionDuration = &duration
	}
	return summary
}

// emitLocked forwards the event to the sink according to the configured log
// level. Failures are counted and logged, never surfaced to the caller.
func (l *Logger) emitLocked(ctx context.Context, event Event) {
	if l.sink == nil || l.cfg.LogLevel == LogLevelMinimal {
		return
	}
	if l.cfg.LogLevel == LogLevelStandard {
		event.Payload = nil
	}

	if err := l.sink.Emit(ctx, event); err != nil {
		l.sinkFailures++
		l.logger.WarnContext(ctx, "compliance sink emission dropped",
			"session_id", l.sessionID,
			"event", string(event.Type),
			"error", err,
			"log_type", "audit",
		)
	}
}
