package participant

import (
	"time"

	dErrors "telesession/pkg/domain-errors"
)

// Role identifies what a participant is in the encounter. The role fixes the
// default permission set at join time; per-participant overrides happen only
// through an explicit permissions update afterwards.
type Role string

const (
	RoleProvider    Role = "provider"
	RoleSpecialist  Role = "specialist"
	RolePatient     Role = "patient"
	RoleInterpreter Role = "interpreter"
	RoleCaregiver   Role = "caregiver"
)

// ParseRole creates a Role from a string, validating it.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "participant role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid participant role %q", s)
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	switch r {
	case RoleProvider, RoleSpecialist, RolePatient, RoleInterpreter, RoleCaregiver:
		return true
	}
	return false
}

// ThirdParty reports whether the role joins through the session's third-party
// policy gate rather than being a core party to the encounter.
func (r Role) ThirdParty() bool {
	switch r {
	case RoleSpecialist, RoleInterpreter, RoleCaregiver:
		return true
	}
	return false
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// Action names a privileged operation a participant may or may not perform.
type Action string

const (
	ActionEndSession    Action = "end_session"
	ActionMuteOthers    Action = "mute_others"
	ActionRecordSession Action = "record_session"
	ActionInviteOthers  Action = "invite_others"
	ActionScreenShare   Action = "screen_share"
)

// IsValid checks if the action is one of the supported enum values.
func (a Action) IsValid() bool {
	switch a {
	case ActionEndSession, ActionMuteOthers, ActionRecordSession, ActionInviteOthers, ActionScreenShare:
		return true
	}
	return false
}

// PermissionSet holds the five privilege flags attached to a participant.
type PermissionSet struct {
	CanEndSession    bool `json:"can_end_session"`
	CanMuteOthers    bool `json:"can_mute_others"`
	CanRecordSession bool `json:"can_record_session"`
	CanInviteOthers  bool `json:"can_invite_others"`
	CanScreenShare   bool `json:"can_screen_share"`
}

// Allows reports whether the set grants the given action.
func (p PermissionSet) Allows(action Action) bool {
	switch action {
	case ActionEndSession:
		return p.CanEndSession
	case ActionMuteOthers:
		return p.CanMuteOthers
	case ActionRecordSession:
		return p.CanRecordSession
	case ActionInviteOthers:
		return p.CanInviteOthers
	case ActionScreenShare:
		return p.CanScreenShare
	}
	return false
}

// PermissionPatch is a merge-patch over a PermissionSet. Nil fields leave the
// existing flag unchanged.
type PermissionPatch struct {
	CanEndSession    *bool `json:"can_end_session,omitempty"`
	CanMuteOthers    *bool `json:"can_mute_others,omitempty"`
	CanRecordSession *bool `json:"can_record_session,omitempty"`
	CanInviteOthers  *bool `json:"can_invite_others,omitempty"`
	CanScreenShare   *bool `json:"can_screen_share,omitempty"`
}

// Apply merges the patch into the given set and returns the result.
func (p PermissionPatch) Apply(set PermissionSet) PermissionSet {
	if p.CanEndSession != nil {
		set.CanEndSession = *p.CanEndSession
	}
	if p.CanMuteOthers != nil {
		set.CanMuteOthers = *p.CanMuteOthers
	}
	if p.CanRecordSession != nil {
		set.CanRecordSession = *p.CanRecordSession
	}
	if p.CanInviteOthers != nil {
		set.CanInviteOthers = *p.CanInviteOthers
	}
	if p.CanScreenShare != nil {
		set.CanScreenShare = *p.CanScreenShare
	}
	return set
}

// Participant is one party in a session. Removal never deletes the record;
// it flips Connected and stamps LeftAt so the audit trail stays continuous.
type Participant struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Role        Role          `json:"role"`
	Contact     string        `json:"contact,omitempty"`
	Connected   bool          `json:"connected"`
	JoinedAt    time.Time     `json:"joined_at"`
	LeftAt      *time.Time    `json:"left_at,omitempty"`
	Permissions PermissionSet `json:"permissions"`
}

// clone returns a copy detached from internal state, including the LeftAt
// pointer.
func (p Participant) clone() Participant {
	out := p
	if p.LeftAt != nil {
		leftAt := *p.LeftAt
		out.LeftAt = &leftAt
	}
	return out
}

// InvitationStatus tracks the invitation workflow. Accepted and rejected are
// terminal; pending invitations flip to expired lazily when used past their
// expiry horizon.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation is a time-boxed offer for a third party to join under a role.
type Invitation struct {
	ID        string           `json:"id"`
	InviterID string           `json:"inviter_id"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Role      Role             `json:"role"`
	Message   string           `json:"message,omitempty"`
	Status    InvitationStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// ExpiredAt reports whether the invitation's expiry horizon has passed.
func (i Invitation) ExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
