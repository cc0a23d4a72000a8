package httptransport

import (
	"time"

	"telesession/internal/participant"
	"telesession/internal/session"
)

// HealthResponse is the GET /healthz body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// SessionListResponse wraps the hosted session collection.
type SessionListResponse struct {
	Sessions []session.Session `json:"sessions"`
}

// ParticipantListResponse wraps a session's participant roster.
type ParticipantListResponse struct {
	Participants []participant.Participant `json:"participants"`
}

// InvitationListResponse wraps a session's invitations.
type InvitationListResponse struct {
	Invitations []participant.Invitation `json:"invitations"`
}

// InviteResponse carries the created invitation and its signed join token.
type InviteResponse struct {
	Invitation participant.Invitation `json:"invitation"`
	JoinToken  string                 `json:"join_token"`
}
