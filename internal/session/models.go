package session

import (
	"time"

	"telesession/internal/compliance"
	dErrors "telesession/pkg/domain-errors"
)

// Status is the primary lifecycle state of a session. Ended is terminal.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusEnded   Status = "ended"
)

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	switch s {
	case StatusWaiting, StatusActive, StatusPaused, StatusEnded:
		return true
	}
	return false
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// Type labels what kind of clinical encounter the session is.
type Type string

const (
	TypeConsultation Type = "consultation"
	TypeFollowUp     Type = "follow_up"
	TypeTherapy      Type = "therapy"
	TypeEmergency    Type = "emergency"
)

// ParseType creates a Type from a string, validating it. Empty input falls
// back to consultation.
func ParseType(s string) (Type, error) {
	if s == "" {
		return TypeConsultation, nil
	}
	t := Type(s)
	if !t.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid session type %q", s)
	}
	return t, nil
}

// IsValid checks if the type is one of the supported enum values.
func (t Type) IsValid() bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeTherapy, TypeEmergency:
		return true
	}
	return false
}

// String returns the string representation.
func (t Type) String() string {
	return string(t)
}

// Config is the per-session policy snapshot taken at creation. It never
// changes for the session's lifetime.
type Config struct {
	MaxParticipants      int           `json:"max_participants"`
	RecordingEnabled     bool          `json:"recording_enabled"`
	TranscriptionEnabled bool          `json:"transcription_enabled"`
	EncryptionRequired   bool          `json:"encryption_required"`
	ScreenShareEnabled   bool          `json:"screen_share_enabled"`
	ThirdPartyEnabled    bool          `json:"third_party_enabled"`
	InvitationTTL        time.Duration `json:"invitation_ttl"`
	SessionTimeout       time.Duration `json:"session_timeout"`
}

// Session is the state of one clinical encounter. Status transitions are the
// only mutation after creation; recording and screen share are independent
// boolean sub-states, not part of the primary state machine.
type Session struct {
	ID                string     `json:"id"`
	PatientID         string     `json:"patient_id"`
	ProviderID        string     `json:"provider_id"`
	Type              Type       `json:"type"`
	Status            Status     `json:"status"`
	ScheduledStart    time.Time  `json:"scheduled_start,omitzero"`
	ScheduledEnd      time.Time  `json:"scheduled_end,omitzero"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	Recording         bool       `json:"recording"`
	ScreenShareActive bool       `json:"screen_share_active"`
	EndReason         string     `json:"end_reason,omitempty"`
	Config            Config     `json:"config"`
	CreatedAt         time.Time  `json:"created_at"`
}

// clone returns a copy detached from internal state.
func (s Session) clone() Session {
	out := s
	if s.StartedAt != nil {
		startedAt := *s.StartedAt
		out.StartedAt = &startedAt
	}
	if s.EndedAt != nil {
		endedAt := *s.EndedAt
		out.EndedAt = &endedAt
	}
	return out
}

// Setup carries everything needed to create a session.
type Setup struct {
	ID             string
	PatientID      string
	ProviderID     string
	Type           Type
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	Config         Config
	Compliance     compliance.Config
}

// Analytics is the session-derived metric bundle returned by endSession and
// the analytics query. Duration serializes as nanoseconds, matching the
// compliance summary.
type Analytics struct {
	SessionID        string        `json:"session_id"`
	Status           Status        `json:"status"`
	ParticipantCount int           `json:"participant_count"`
	Duration         time.Duration `json:"duration"`
	ComplianceScore  int           `json:"compliance_score"`
	EndReason        string        `json:"end_reason,omitempty"`
}
