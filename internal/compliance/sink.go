package compliance

import (
	"context"
	"log/slog"
)

// Sink receives logged events for live diagnostics (not storage). The logger
// keeps the authoritative copy; a sink failure only costs the emission.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// SlogSink emits audit events through a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink writing to the given logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Emit writes one event as a structured log line.
func (s *SlogSink) Emit(ctx context.Context, event Event) error {
	args := []any{
		"event_id", event.ID,
		"session_id", event.SessionID,
		"event", string(event.Type),
		"compliance_level", string(event.Level),
		"log_type", "audit",
	}
	if event.ParticipantID != "" {
		args = append(args, "participant_id", event.ParticipantID)
	}
	if event.Payload != nil {
		args = append(args, "payload", event.Payload)
	}

	s.logger.InfoContext(ctx, "compliance event", args...)
	return nil
}
