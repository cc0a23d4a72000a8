// Package session owns the lifecycle state machine for one clinical
// encounter and composes the participant manager, compliance logger, and
// media controller behind a single caller-facing API.
//
// All state-changing operations on one session serialize on the
// orchestrator's mutex, so concurrent joins near the capacity limit or
// racing lifecycle transitions resolve to exactly one winner. Reads are
// served from copies and never block writers beyond the read lock.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"telesession/internal/compliance"
	"telesession/internal/media"
	"telesession/internal/participant"
	"telesession/internal/session/metrics"
	dErrors "telesession/pkg/domain-errors"
	"telesession/pkg/requestcontext"
)

const defaultMaxParticipants = 8

// mediaHold pairs a live capability with the participant who started it.
type mediaHold struct {
	capability media.Capability
	ownerID    string
}

// Orchestrator drives one session aggregate. Safe for concurrent use.
type Orchestrator struct {
	mu      sync.RWMutex
	session Session
	held    map[media.CaptureKind]mediaHold

	participants *participant.Manager
	audit        *compliance.Logger
	media        media.Controller
	logger       *slog.Logger
	metrics      *metrics.Metrics
	sink         compliance.Sink
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics attaches session metrics. Nil metrics are valid and record
// nothing.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithMediaController replaces the default in-process media controller.
func WithMediaController(ctrl media.Controller) Option {
	return func(o *Orchestrator) {
		o.media = ctrl
	}
}

// WithComplianceSink forwards compliance events to a diagnostic sink.
func WithComplianceSink(sink compliance.Sink) Option {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// New creates a session in the waiting state. When audit logging is enabled
// the compliance log opens with its session_started entry immediately, before
// any participant joins.
func New(ctx context.Context, setup Setup, opts ...Option) (*Orchestrator, error) {
	if setup.PatientID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "patient id cannot be empty")
	}
	if setup.ProviderID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "provider id cannot be empty")
	}
	if setup.Type == "" {
		setup.Type = TypeConsultation
	}
	if !setup.Type.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid session type %q", setup.Type)
	}
	if setup.ID == "" {
		setup.ID = uuid.NewString()
	}
	if setup.Config.MaxParticipants <= 0 {
		setup.Config.MaxParticipants = defaultMaxParticipants
	}

	o := &Orchestrator{
		session: Session{
			ID:             setup.ID,
			PatientID:      setup.PatientID,
			ProviderID:     setup.ProviderID,
			Type:           setup.Type,
			Status:         StatusWaiting,
			ScheduledStart: setup.ScheduledStart,
			ScheduledEnd:   setup.ScheduledEnd,
			Config:         setup.Config,
			CreatedAt:      requestcontext.Now(ctx),
		},
		held:   make(map[media.CaptureKind]mediaHold),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.media == nil {
		o.media = media.NewLocalController()
	}

	auditOpts := []compliance.Option{compliance.WithLogger(o.logger)}
	if o.sink != nil {
		auditOpts = append(auditOpts, compliance.WithSink(o.sink))
	}
	o.audit = compliance.New(ctx, setup.ID, setup.Compliance, auditOpts...)

	o.participants = participant.NewManager(setup.ID, participant.Policy{
		MaxParticipants:   setup.Config.MaxParticipants,
		InvitationTTL:     setup.Config.InvitationTTL,
		ThirdPartyEnabled: setup.Config.ThirdPartyEnabled,
	}, o.audit, o.logger)

	return o, nil
}

// ID returns the session identifier.
func (o *Orchestrator) ID() string {
	return o.session.ID
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start transitions the session from waiting to active and stamps the actual
// start time.
func (o *Orchestrator) Start(ctx context.Context) (Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.liveLocked(); err != nil {
		return Session{}, err
	}
	if o.session.Status != StatusWaiting {
		return Session{}, dErrors.Newf(dErrors.CodeInvalidSessionState,
			"cannot start a session that is %s", o.session.Status)
	}

	now := requestcontext.Now(ctx)
	o.session.Status = StatusActive
	o.session.StartedAt = &now

	o.audit.LogEvent(ctx, compliance.Event{
		Type:    compliance.EventSessionStarted,
		Payload: map[string]any{"session_type": o.session.Type.String()},
	})
	o.metrics.IncrementTransition(StatusActive.String())
	o.logger.InfoContext(ctx, "session started", "session_id", o.session.ID)

	return o.session.clone(), nil
}

// Pause suspends an active session.
func (o *Orchestrator) Pause(ctx context.Context) (Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.liveLocked(); err != nil {
		return Session{}, err
	}
	if o.session.Status != StatusActive {
		return Session{}, dErrors.Newf(dErrors.CodeInvalidSessionState,
			"cannot pause a session that is %s", o.session.Status)
	}

	o.session.Status = StatusPaused
	o.audit.LogEvent(ctx, compliance.Event{Type: compliance.EventSessionPaused})
	o.metrics.IncrementTransition(StatusPaused.String())

	return o.session.clone(), nil
}

// Resume reactivates a paused session.
func (o *Orchestrator) Resume(ctx context.Context) (Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.liveLocked(); err != nil {
		return Session{}, err
	}
	if o.session.Status != StatusPaused {
		return Session{}, dErrors.Newf(dErrors.CodeInvalidSessionState,
			"cannot resume a session that is %s", o.session.Status)
	}

	o.session.Status = StatusActive
	o.audit.LogEvent(ctx, compliance.Event{Type: compliance.EventSessionResumed})
	o.metrics.IncrementTransition(StatusActive.String())

	return o.session.clone(), nil
}

// End terminates the session, releases any live media capabilities, records
// the closing audit event, and returns the final analytics. Terminal; every
// later mutation fails with SESSION_ENDED.
func (o *Orchestrator) End(ctx context.Context, reason string) (Analytics, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.liveLocked(); err != nil {
		return Analytics{}, err
	}

	o.stopCaptureLocked(ctx, media.CaptureScreenShare, "session_ended")
	o.stopCaptureLocked(ctx, media.CaptureRecording, "session_ended")

	now := requestcontext.Now(ctx)
	o.session.Status = StatusEnded
	o.session.EndedAt = &now
	o.session.EndReason = reason

	var duration time.Duration
	if o.session.StartedAt != nil {
		duration = now.Sub(*o.session.StartedAt)
	}
	connected := o.participants.ConnectedCount()

	o.audit.LogSessionEnd(ctx, duration, connected, reason)
	o.metrics.IncrementTransition(StatusEnded.String())
	o.metrics.ObserveSessionDuration(duration)
	o.logger.InfoContext(ctx, "session ended",
		"session_id", o.session.ID,
		"reason", reason,
		"duration_seconds", duration.Seconds(),
		"participant_count", connected,
	)

	return Analytics{
		SessionID:        o.session.ID,
		Status:           StatusEnded,
		ParticipantCount: connected,
		Duration:         duration,
		ComplianceScore:  o.audit.ComplianceScore(),
		EndReason:        reason,
	}, nil
}

// Ready reports whether the session can still host activity. True while
// waiting, active, or paused; false once ended.
func (o *Orchestrator) Ready() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	switch o.session.Status {
	case StatusWaiting, StatusActive, StatusPaused:
		return true
	}
	return false
}

// liveLocked fails when the session has already ended.
func (o *Orchestrator) liveLocked() error {
	if o.session.Status == StatusEnded {
		return dErrors.Newf(dErrors.CodeSessionEnded, "session %s has ended", o.session.ID)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Membership
// -----------------------------------------------------------------------------

// AddParticipant admits a participant directly. Fails once the session has
// ended.
func (o *Orchestrator) AddParticipant(ctx context.Context, req participant.JoinRequest) (participant.Participant, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.liveLocked(); err != nil {
		return participant.Participant{}, err
	}

	p, err := o.participants.Add(ctx, req)
	if err != nil {
		return participant.Participant{}, err
	}
	o.metrics.IncrementParticipantEvent("joined")
	return p, nil
}

// RemoveParticipant disconnects a participant and releases any media
// capability they were holding.
func (o *Orchestrator) RemoveParticipant(ctx context.Context, participantID string) (participant.Participant, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.liveLocked(); err != nil {
		return participant.Participant{}, err
	}

	p, err := o.participants.Remove(ctx, participantID)
	if err != nil {
		return participant.Participant{}, err
	}

	for _, kind := range []media.CaptureKind{media.CaptureScreenShare, media.CaptureRecording} {
		if hold, ok := o.held[kind]; ok && hold.ownerID == participantID {
			o.stopCaptureLocked(ctx, kind, "participant_left")
		}
	}

	o.metrics.IncrementParticipantEvent("left")
	return p, nil
}

// Invite creates a pending invitation through the participant manager.
func (o *Orchestrator) Invite(ctx context.Context, inviterID, email, name string, role participant.Role, message string) (participant.Invitation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.liveLocked(); err != nil {
		return participant.Invitation{}, err
	}
	return o.participants.Invite(ctx, inviterID, email, name, role, message)
}

// AcceptInvitation admits the invitee under the invited role.
func (o *Orchestrator) AcceptInvitation(ctx context.Context, invitationID, participantID string) (participant.Participant, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.liveLocked(); err != nil {
		return participant.Participant{}, err
	}

	p, err := o.participants.AcceptInvitation(ctx, invitationID, participantID)
	if err != nil {
		return participant.Participant{}, err
	}
	o.metrics.IncrementParticipantEvent("joined")
	return p, nil
}

// RejectInvitation declines a pending invitation.
func (o *Orchestrator) RejectInvitation(ctx context.Context, invitationID string) (participant.Invitation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.liveLocked(); err != nil {
		return participant.Invitation{}, err
	}
	return o.participants.RejectInvitation(ctx, invitationID)
}

// UpdatePermissions merge-patches a participant's permission set.
func (o *Orchestrator) UpdatePermissions(ctx context.Context, participantID string, patch participant.PermissionPatch) (participant.Participant, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.liveLocked(); err != nil {
		return participant.Participant{}, err
	}
	return o.participants.UpdatePermissions(ctx, participantID, patch)
}

// Mute records a mute or unmute of the target on the requester's authority.
// Actual audio suppression belongs to the media transport; the session core
// only enforces the privilege and keeps the audit record.
func (o *Orchestrator) Mute(ctx context.Context, targetID string, muted bool, requesterID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.liveLocked(); err != nil {
		return err
	}
	if !o.participants.CanPerform(requesterID, participant.ActionMuteOthers) {
		return dErrors.Newf(dErrors.CodeInsufficientPermissions,
			"participant %s may not mute others", requesterID)
	}

	target, err := o.participants.Participant(targetID)
	if err != nil {
		return err
	}
	if !target.Connected {
		return dErrors.Newf(dErrors.CodeParticipantDisconnected,
			"participant %s already left the session", targetID)
	}

	eventType := compliance.EventParticipantMuted
	if !muted {
		eventType = compliance.EventParticipantUnmuted
	}
	o.audit.LogEvent(ctx, compliance.Event{
		Type:          eventType,
		ParticipantID: targetID,
		Payload:       map[string]any{"requested_by": requesterID},
	})
	return nil
}

// CanPerform exposes the permission lookup for caller-side gating. Pure read.
func (o *Orchestrator) CanPerform(participantID string, action participant.Action) bool {
	return o.participants.CanPerform(participantID, action)
}

// -----------------------------------------------------------------------------
// Recording and screen share
// -----------------------------------------------------------------------------

// StartScreenShare acquires the screen capture capability for a participant.
// Requires an active session, the session-level screen share gate, and the
// participant's screen share privilege.
func (o *Orchestrator) StartScreenShare(ctx context.Context, participantID string) (Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.liveLocked(); err != nil {
		return Session{}, err
	}
	if o.session.Status != StatusActive {
		return Session{}, dErrors.New(dErrors.CodeInvalidSessionState,
			"screen sharing requires an active session")
	}
	if !o.session.Config.ScreenShareEnabled || !o.participants.CanPerform(participantID, participant.ActionScreenShare) {
		return Session{}, dErrors.Newf(dErrors.CodeInsufficientPermissions,
			"participant %s may not share their screen", participantID)
	}
	if o.session.ScreenShareActive {
		return Session{}, dErrors.New(dErrors.CodeScreenShareActive, "a screen share is already active")
	}

	if err := o.startCaptureLocked(ctx, media.CaptureScreenShare, participantID); err != nil {
		return Session{}, err
	}
	o.session.ScreenShareActive = true
	o.audit.LogEvent(ctx, compliance.Event{
		Type:          compliance.EventScreenShareStarted,
		ParticipantID: participantID,
	})
	return o.session.clone(), nil
}

// StopScreenShare releases the screen capture capability and clears the flag.
// Unconditional and idempotent; stopping when nothing is shared is a no-op.
func (o *Orchestrator) StopScreenShare(ctx context.Context) (Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopCaptureLocked(ctx, media.CaptureScreenShare, "stopped")
	return o.session.clone(), nil
}

// StartRecording acquires the recording capability for a participant.
// Requires an active session, the session-level recording gate, and the
// participant's recording privilege.
func (o *Orchestrator) StartRecording(ctx context.Context, participantID string) (Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.liveLocked(); err != nil {
		return Session{}, err
	}
	if o.session.Status != StatusActive {
		return Session{}, dErrors.New(dErrors.CodeInvalidSessionState,
			"recording requires an active session")
	}
	if !o.session.Config.RecordingEnabled || !o.participants.CanPerform(participantID, participant.ActionRecordSession) {
		return Session{}, dErrors.Newf(dErrors.CodeInsufficientPermissions,
			"participant %s may not record the session", participantID)
	}
	if o.session.Recording {
		return Session{}, dErrors.New(dErrors.CodeRecordingActive, "a recording is already active")
	}

	if err := o.startCaptureLocked(ctx, media.CaptureRecording, participantID); err != nil {
		return Session{}, err
	}
	o.session.Recording = true
	o.audit.LogEvent(ctx, compliance.Event{
		Type:          compliance.EventRecordingStarted,
		ParticipantID: participantID,
	})
	return o.session.clone(), nil
}

// StopRecording releases the recording capability and clears the flag.
// Unconditional and idempotent.
func (o *Orchestrator) StopRecording(ctx context.Context) (Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopCaptureLocked(ctx, media.CaptureRecording, "stopped")
	return o.session.clone(), nil
}

// startCaptureLocked acquires one capability and records the hold. Failures
// surface as retryable technical errors and leave the session flags alone.
func (o *Orchestrator) startCaptureLocked(ctx context.Context, kind media.CaptureKind, participantID string) error {
	capability, err := o.media.Acquire(ctx, kind, o.session.ID, participantID)
	if err != nil {
		o.metrics.IncrementMediaFailure(kind.String())
		return dErrors.Wrap(err, dErrors.CodeMediaUnavailable, "media capability unavailable")
	}
	o.held[kind] = mediaHold{capability: capability, ownerID: participantID}
	return nil
}

// stopCaptureLocked releases the held capability of one kind, clears the
// matching session flag, and records the stop event. No-op when nothing of
// that kind is held. Release failures degrade to a technical_issue record
// and never abort the caller.
func (o *Orchestrator) stopCaptureLocked(ctx context.Context, kind media.CaptureKind, cause string) {
	hold, ok := o.held[kind]
	if !ok {
		return
	}
	delete(o.held, kind)

	if err := o.media.Release(ctx, hold.capability); err != nil {
		o.metrics.IncrementMediaFailure(kind.String())
		o.logger.WarnContext(ctx, "media capability release failed",
			"session_id", o.session.ID,
			"kind", kind.String(),
			"error", err,
		)
		o.audit.LogTechnicalIssue(ctx, hold.ownerID,
			fmt.Sprintf("failed to release %s capability: %v", kind, err))
	}

	var eventType compliance.EventType
	switch kind {
	case media.CaptureScreenShare:
		o.session.ScreenShareActive = false
		eventType = compliance.EventScreenShareStopped
	case media.CaptureRecording:
		o.session.Recording = false
		eventType = compliance.EventRecordingStopped
	}
	o.audit.LogEvent(ctx, compliance.Event{
		Type:          eventType,
		ParticipantID: hold.ownerID,
		Payload:       map[string]any{"reason": cause},
	})
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

// Snapshot returns a copy of the current session state.
func (o *Orchestrator) Snapshot() Session {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.session.clone()
}

// Participants returns copies of every participant record, in join order.
func (o *Orchestrator) Participants() []participant.Participant {
	return o.participants.Participants()
}

// ConnectedParticipants returns copies of the currently connected
// participants.
func (o *Orchestrator) ConnectedParticipants() []participant.Participant {
	return o.participants.ConnectedParticipants()
}

// Participant returns a copy of one participant record.
func (o *Orchestrator) Participant(participantID string) (participant.Participant, error) {
	return o.participants.Participant(participantID)
}

// Invitations returns copies of every invitation with lazy expiry applied.
func (o *Orchestrator) Invitations(ctx context.Context) []participant.Invitation {
	return o.participants.Invitations(ctx)
}

// Invitation returns a copy of one invitation with lazy expiry applied.
func (o *Orchestrator) Invitation(ctx context.Context, invitationID string) (participant.Invitation, error) {
	return o.participants.Invitation(ctx, invitationID)
}

// ComplianceEvents returns an independent copy of the audit log.
func (o *Orchestrator) ComplianceEvents() []compliance.Event {
	return o.audit.Events()
}

// ComplianceSummary returns the aggregate view of the audit log.
func (o *Orchestrator) ComplianceSummary() compliance.Summary {
	return o.audit.Summary()
}

// ComplianceExport assembles the artifact handed to external audit systems.
func (o *Orchestrator) ComplianceExport(ctx context.Context) compliance.Export {
	return o.audit.Export(ctx)
}

// Analytics returns the session-derived metrics. For a live session the
// duration is the elapsed time so far; after the end it is fixed.
func (o *Orchestrator) Analytics(ctx context.Context) Analytics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var duration time.Duration
	switch {
	case o.session.StartedAt == nil:
	case o.session.EndedAt != nil:
		duration = o.session.EndedAt.Sub(*o.session.StartedAt)
	default:
		duration = requestcontext.Now(ctx).Sub(*o.session.StartedAt)
	}

	return Analytics{
		SessionID:        o.session.ID,
		Status:           o.session.Status,
		ParticipantCount: o.participants.ConnectedCount(),
		Duration:         duration,
		ComplianceScore:  o.audit.ComplianceScore(),
		EndReason:        o.session.EndReason,
	}
}
