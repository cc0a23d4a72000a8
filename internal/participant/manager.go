// Package participant owns membership, role-based permissions, and the
// invitation workflow for one session. Every accepted mutation is recorded
// through the session's compliance logger; rejected operations surface a
// domain error and log nothing.
package participant

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"telesession/internal/compliance"
	"telesession/internal/platform/device"
	dErrors "telesession/pkg/domain-errors"
	"telesession/pkg/requestcontext"
)

const defaultInvitationTTL = 24 * time.Hour

// Policy carries the session-level gates the manager enforces.
type Policy struct {
	MaxParticipants   int
	InvitationTTL     time.Duration // zero means the 24h default
	ThirdPartyEnabled bool
}

// JoinRequest describes a participant to add directly to the session.
type JoinRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	Contact string `json:"contact,omitempty"`
}

// Manager tracks the participant set and invitations for one session.
// Safe for concurrent use; all mutations serialize on one mutex.
type Manager struct {
	mu        sync.RWMutex
	sessionID string
	policy    Policy

	participants map[string]*Participant
	joinOrder    []string
	invitations  map[string]*Invitation
	inviteOrder  []string

	audit  *compliance.Logger
	logger *slog.Logger
}

// NewManager builds the manager for a session. The audit logger records every
// accepted mutation; it must belong to the same session.
func NewManager(sessionID string, policy Policy, audit *compliance.Logger, logger *slog.Logger) *Manager {
	if policy.InvitationTTL <= 0 {
		policy.InvitationTTL = defaultInvitationTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessionID:    sessionID,
		policy:       policy,
		participants: make(map[string]*Participant),
		invitations:  make(map[string]*Invitation),
		audit:        audit,
		logger:       logger,
	}
}

// Add admits a new participant with the default permissions for their role.
// The identifier must be new to the session, connected or not, and the
// connected count must be below the configured maximum.
func (m *Manager) Add(ctx context.Context, req JoinRequest) (Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.addLocked(ctx, req, "")
}

func (m *Manager) addLocked(ctx context.Context, req JoinRequest, invitationID string) (Participant, error) {
	if req.ID == "" {
		return Participant{}, dErrors.New(dErrors.CodeInvalidInput, "participant id cannot be empty")
	}
	if !req.Role.IsValid() {
		return Participant{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid participant role %q", req.Role)
	}
	if _, exists := m.participants[req.ID]; exists {
		return Participant{}, dErrors.Newf(dErrors.CodeParticipantExists, "participant %s already in session", req.ID)
	}
	if m.connectedCountLocked() >= m.policy.MaxParticipants {
		return Participant{}, dErrors.Newf(dErrors.CodeSessionFull,
			"session has reached its maximum of %d participants", m.policy.MaxParticipants)
	}

	p := &Participant{
		ID:          req.ID,
		Name:        req.Name,
		Role:        req.Role,
		Contact:     req.Contact,
		Connected:   true,
		JoinedAt:    requestcontext.Now(ctx),
		Permissions: DefaultPermissions(req.Role),
	}
	m.participants[p.ID] = p
	m.joinOrder = append(m.joinOrder, p.ID)

	payload := map[string]any{
		"name": p.Name,
		"role": p.Role.String(),
	}
	if invitationID != "" {
		payload["invitation_id"] = invitationID
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		payload["device"] = device.ParseUserAgent(ua)
		payload["device_fingerprint"] = device.Fingerprint(ua)
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		payload["ip_address"] = ip
	}
	m.audit.LogEvent(ctx, compliance.Event{
		Type:          compliance.EventParticipantJoined,
		ParticipantID: p.ID,
		Payload:       payload,
	})

	return p.clone(), nil
}

// Remove marks a participant disconnected and stamps LeftAt. The record is
// kept so the audit trail stays continuous. Removing an already-disconnected
// participant fails with a state conflict rather than succeeding silently.
func (m *Manager) Remove(ctx context.Context, participantID string) (Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.participants[participantID]
	if !exists {
		return Participant{}, dErrors.Newf(dErrors.CodeParticipantNotFound, "participant %s not in session", participantID)
	}
	if !p.Connected {
		return Participant{}, dErrors.Newf(dErrors.CodeParticipantDisconnected,
			"participant %s already left the session", participantID)
	}

	leftAt := requestcontext.Now(ctx)
	p.Connected = false
	p.LeftAt = &leftAt

	m.audit.LogEvent(ctx, compliance.Event{
		Type:          compliance.EventParticipantLeft,
		ParticipantID: p.ID,
		Payload:       map[string]any{"role": p.Role.String()},
	})

	return p.clone(), nil
}

// Invite creates a pending invitation for a third party. The inviter must be
// a connected participant holding the invite privilege, and third-party roles
// require the session policy to allow external participants.
func (m *Manager) Invite(ctx context.Context, inviterID, email, name string, role Role, message string) (Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if email == "" {
		return Invitation{}, dErrors.New(dErrors.CodeInvalidInput, "invitee email cannot be empty")
	}
	if !role.IsValid() {
		return Invitation{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid participant role %q", role)
	}

	inviter, exists := m.participants[inviterID]
	if !exists {
		return Invitation{}, dErrors.Newf(dErrors.CodeParticipantNotFound, "participant %s not in session", inviterID)
	}
	if !inviter.Connected || !inviter.Permissions.CanInviteOthers {
		return Invitation{}, dErrors.Newf(dErrors.CodeInsufficientPermissions,
			"participant %s may not invite others", inviterID)
	}
	if role.ThirdParty() && !m.policy.ThirdPartyEnabled {
		return Invitation{}, dErrors.New(dErrors.CodeInsufficientPermissions,
			"third-party participants are not allowed in this session")
	}

	now := requestcontext.Now(ctx)
	inv := &Invitation{
		ID:        uuid.NewString(),
		InviterID: inviterID,
		Email:     email,
		Name:      name,
		Role:      role,
		Message:   message,
		Status:    InvitationPending,
		CreatedAt: now,
		ExpiresAt: now.Add(m.policy.InvitationTTL),
	}
	m.invitations[inv.ID] = inv
	m.inviteOrder = append(m.inviteOrder, inv.ID)

	m.audit.LogEvent(ctx, compliance.Event{
		Type:          compliance.EventInvitationSent,
		ParticipantID: inviterID,
		Payload: map[string]any{
			"invitation_id": inv.ID,
			"email":         inv.Email,
			"role":          inv.Role.String(),
			"expires_at":    inv.ExpiresAt,
		},
	})

	return *inv, nil
}

// AcceptInvitation turns a pending invitation into a participant under the
// invited role. Expiry is evaluated here, lazily; there is no background
// sweep. A failed admission (duplicate, session full) leaves the invitation
// pending so the invitee can retry once the conflict clears.
func (m *Manager) AcceptInvitation(ctx context.Context, invitationID, participantID string) (Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, err := m.usablePendingLocked(ctx, invitationID)
	if err != nil {
		return Participant{}, err
	}

	p, err := m.addLocked(ctx, JoinRequest{
		ID:      participantID,
		Name:    inv.Name,
		Role:    inv.Role,
		Contact: inv.Email,
	}, inv.ID)
	if err != nil {
		return Participant{}, err
	}

	inv.Status = InvitationAccepted
	return p, nil
}

// RejectInvitation declines a pending invitation. Terminal, like acceptance.
func (m *Manager) RejectInvitation(ctx context.Context, invitationID string) (Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, err := m.usablePendingLocked(ctx, invitationID)
	if err != nil {
		return Invitation{}, err
	}

	inv.Status = InvitationRejected
	m.audit.LogEvent(ctx, compliance.Event{
		Type: compliance.EventInvitationRejected,
		Payload: map[string]any{
			"invitation_id": inv.ID,
			"role":          inv.Role.String(),
		},
	})

	return *inv, nil
}

// usablePendingLocked resolves an invitation that is still actionable,
// flipping it to expired when its horizon has passed.
func (m *Manager) usablePendingLocked(ctx context.Context, invitationID string) (*Invitation, error) {
	inv, exists := m.invitations[invitationID]
	if !exists {
		return nil, dErrors.Newf(dErrors.CodeInvitationNotFound, "invitation %s not found", invitationID)
	}
	if inv.Status != InvitationPending {
		return nil, dErrors.Newf(dErrors.CodeInvitationAlreadyProcessed,
			"invitation %s already %s", invitationID, inv.Status)
	}
	if inv.ExpiredAt(requestcontext.Now(ctx)) {
		inv.Status = InvitationExpired
		m.logger.InfoContext(ctx, "invitation expired",
			"session_id", m.sessionID,
			"invitation_id", inv.ID,
			"log_type", "audit",
		)
		return nil, dErrors.Newf(dErrors.CodeInvitationExpired, "invitation %s has expired", invitationID)
	}
	return inv, nil
}

// UpdatePermissions merge-patches a participant's permission set. Nil patch
// fields leave the existing flags unchanged. Disconnected participants can
// still be updated; their record survives for the session's lifetime.
func (m *Manager) UpdatePermissions(ctx context.Context, participantID string, patch PermissionPatch) (Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.participants[participantID]
	if !exists {
		return Participant{}, dErrors.Newf(dErrors.CodeParticipantNotFound, "participant %s not in session", participantID)
	}

	p.Permissions = patch.Apply(p.Permissions)

	m.audit.LogEvent(ctx, compliance.Event{
		Type:          compliance.EventPermissionsUpdated,
		ParticipantID: p.ID,
		Payload:       map[string]any{"permissions": p.Permissions},
	})

	return p.clone(), nil
}

// CanPerform reports whether a participant currently holds the privilege for
// an action. Unknown and disconnected participants can perform nothing.
func (m *Manager) CanPerform(participantID string, action Action) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.participants[participantID]
	if !exists || !p.Connected {
		return false
	}
	return p.Permissions.Allows(action)
}

// Participant returns a copy of one participant record.
func (m *Manager) Participant(participantID string) (Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.participants[participantID]
	if !exists {
		return Participant{}, dErrors.Newf(dErrors.CodeParticipantNotFound, "participant %s not in session", participantID)
	}
	return p.clone(), nil
}

// Participants returns copies of every participant record, in join order.
func (m *Manager) Participants() []Participant {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.participantsLocked()
}

// ConnectedParticipants returns copies of the currently connected
// participants, in join order.
func (m *Manager) ConnectedParticipants() []Participant {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return lo.Filter(m.participantsLocked(), func(p Participant, _ int) bool {
		return p.Connected
	})
}

// ConnectedCount returns how many participants are currently connected.
func (m *Manager) ConnectedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.connectedCountLocked()
}

// Invitation returns a copy of one invitation, with lazy expiry applied to
// the reported status.
func (m *Manager) Invitation(ctx context.Context, invitationID string) (Invitation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inv, exists := m.invitations[invitationID]
	if !exists {
		return Invitation{}, dErrors.Newf(dErrors.CodeInvitationNotFound, "invitation %s not found", invitationID)
	}
	return m.invitationViewLocked(ctx, inv), nil
}

// Invitations returns copies of every invitation in creation order. Pending
// invitations past their expiry horizon are reported as expired even though
// the stored status only flips when the invitation is acted on.
func (m *Manager) Invitations(ctx context.Context) []Invitation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	invitations := make([]Invitation, 0, len(m.inviteOrder))
	for _, id := range m.inviteOrder {
		invitations = append(invitations, m.invitationViewLocked(ctx, m.invitations[id]))
	}
	return invitations
}

func (m *Manager) invitationViewLocked(ctx context.Context, inv *Invitation) Invitation {
	view := *inv
	if view.Status == InvitationPending && view.ExpiredAt(requestcontext.Now(ctx)) {
		view.Status = InvitationExpired
	}
	return view
}

func (m *Manager) participantsLocked() []Participant {
	participants := make([]Participant, 0, len(m.joinOrder))
	for _, id := range m.joinOrder {
		participants = append(participants, m.participants[id].clone())
	}
	return participants
}

func (m *Manager) connectedCountLocked() int {
	count := 0
	for _, p := range m.participants {
		if p.Connected {
			count++
		}
	}
	return count
}
