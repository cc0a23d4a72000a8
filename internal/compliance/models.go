package compliance

import (
	"time"
)

// Level classifies audit events by regulatory sensitivity. Summaries count
// high-level events separately and export consumers use the level to decide
// retention.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// EventType identifies what happened. The set is closed from the session
// core's point of view, but unknown types are still logged (at medium level)
// so collaborators can record events the core does not know about.
type EventType string

const (
	// Session lifecycle events.
	EventSessionStarted EventType = "session_started"
	EventSessionPaused  EventType = "session_paused"
	EventSessionResumed EventType = "session_resumed"
	EventSessionEnded   EventType = "session_ended"

	// Membership events.
	EventParticipantJoined EventType = "participant_joined"
	EventParticipantLeft   EventType = "participant_left"

	// Invitation events.
	EventInvitationSent     EventType = "invitation_sent"
	EventInvitationRejected EventType = "invitation_rejected"

	// Permission events.
	EventPermissionsUpdated EventType = "permissions_updated"
	EventParticipantMuted   EventType = "participant_muted"
	EventParticipantUnmuted EventType = "participant_unmuted"

	// Media events.
	EventRecordingStarted   EventType = "recording_started"
	EventRecordingStopped   EventType = "recording_stopped"
	EventScreenShareStarted EventType = "screen_share_started"
	EventScreenShareStopped EventType = "screen_share_stopped"

	// Consent events.
	EventConsentGiven   EventType = "consent_given"
	EventConsentRevoked EventType = "consent_revoked"

	// Technical events.
	EventTechnicalIssue EventType = "technical_issue"
)

// eventLevels maps each event type to its compliance level.
// High: lifecycle boundaries, consent, permission grants, clinical recording.
// Medium: routine membership and media activity, technical faults.
// Low: moderation noise.
var eventLevels = map[EventType]Level{
	EventSessionStarted: LevelHigh,
	EventSessionPaused:  LevelMedium,
	EventSessionResumed: LevelMedium,
	EventSessionEnded:   LevelHigh,

	EventParticipantJoined: LevelMedium,
	EventParticipantLeft:   LevelMedium,

	EventInvitationSent:     LevelMedium,
	EventInvitationRejected: LevelMedium,

	EventPermissionsUpdated: LevelHigh,
	EventParticipantMuted:   LevelLow,
	EventParticipantUnmuted: LevelLow,

	EventRecordingStarted:   LevelHigh,
	EventRecordingStopped:   LevelHigh,
	EventScreenShareStarted: LevelMedium,
	EventScreenShareStopped: LevelMedium,

	EventConsentGiven:   LevelHigh,
	EventConsentRevoked: LevelHigh,

	EventTechnicalIssue: LevelMedium,
}

// DefaultLevel returns the compliance level for this event type.
// Unknown types default to LevelMedium.
func (t EventType) DefaultLevel() Level {
	if level, ok := eventLevels[t]; ok {
		return level
	}
	return LevelMedium
}

// LogLevel controls how much the logger forwards to its diagnostic sink.
// Storage is unaffected: every logged event is kept in full regardless of
// level.
type LogLevel string

const (
	// LogLevelMinimal stores events without emitting them to the sink.
	LogLevelMinimal LogLevel = "minimal"
	// LogLevelStandard emits event metadata to the sink.
	LogLevelStandard LogLevel = "standard"
	// LogLevelDetailed emits event metadata and the full payload.
	LogLevelDetailed LogLevel = "detailed"
)

// IsValid reports whether the log level is one of the defined levels.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelMinimal, LogLevelStandard, LogLevelDetailed:
		return true
	}
	return false
}

// Config is the per-session compliance configuration captured in every
// export so auditors can see the mode the log was produced under.
type Config struct {
	AuditLogging  bool     `json:"audit_logging"`
	LogLevel      LogLevel `json:"log_level"`
	RetentionDays int      `json:"retention_days"`
}

// Event is one append-only audit record. Events are never mutated or
// removed once logged.
type Event struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"session_id"`
	Timestamp     time.Time      `json:"timestamp"`
	Type          EventType      `json:"type"`
	ParticipantID string         `json:"participant_id,omitempty"`
	Level         Level          `json:"compliance_level"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// Summary aggregates the log for audit consumers.
// SessionDuration spans from the first session_started event to the
// session_ended event and is absent unless both exist.
type Summary struct {
	TotalEvents          int            `json:"total_events"`
	HighComplianceEvents int            `json:"high_compliance_events"`
	ConsentEvents        int            `json:"consent_events"`
	TechnicalIssues      int            `json:"technical_issues"`
	SessionDuration      *time.Duration `json:"session_duration,omitempty"`
}

// Export is the sole artifact handed to external audit and record-keeping
// systems. Its shape is a stable contract.
type Export struct {
	SessionID  string    `json:"session_id"`
	Config     Config    `json:"compliance_config"`
	Events     []Event   `json:"events"`
	Summary    Summary   `json:"summary"`
	ExportedAt time.Time `json:"exported_at"`
}
