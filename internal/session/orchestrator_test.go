package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"telesession/internal/compliance"
	"telesession/internal/media"
	"telesession/internal/media/mocks"
	"telesession/internal/participant"
	dErrors "telesession/pkg/domain-errors"
	"telesession/pkg/platform/sentinel"
	"telesession/pkg/requestcontext"
)

type OrchestratorSuite struct {
	suite.Suite
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func openConfig() Config {
	return Config{
		MaxParticipants:    8,
		RecordingEnabled:   true,
		ScreenShareEnabled: true,
		ThirdPartyEnabled:  true,
		InvitationTTL:      time.Hour,
	}
}

func (s *OrchestratorSuite) newOrchestrator(cfg Config, opts ...Option) *Orchestrator {
	return s.newOrchestratorAt(context.Background(), cfg, opts...)
}

func (s *OrchestratorSuite) newOrchestratorAt(ctx context.Context, cfg Config, opts ...Option) *Orchestrator {
	setup := Setup{
		ID:         "sess-1",
		PatientID:  "pat-1",
		ProviderID: "prov-1",
		Type:       TypeConsultation,
		Config:     cfg,
		Compliance: compliance.Config{AuditLogging: true, LogLevel: compliance.LogLevelStandard},
	}
	orch, err := New(ctx, setup, append(opts, WithLogger(slog.New(slog.DiscardHandler)))...)
	s.Require().NoError(err)
	return orch
}

func (s *OrchestratorSuite) join(orch *Orchestrator, id string, role participant.Role) {
	_, err := orch.AddParticipant(context.Background(), participant.JoinRequest{
		ID:   id,
		Name: "Participant " + id,
		Role: role,
	})
	s.Require().NoError(err)
}

func countEvents(orch *Orchestrator, eventType compliance.EventType) int {
	count := 0
	for _, event := range orch.ComplianceEvents() {
		if event.Type == eventType {
			count++
		}
	}
	return count
}

func lastEvent(orch *Orchestrator, eventType compliance.EventType) (compliance.Event, bool) {
	events := orch.ComplianceEvents()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == eventType {
			return events[i], true
		}
	}
	return compliance.Event{}, false
}

// TestNew tests session construction and setup validation.
func (s *OrchestratorSuite) TestNew() {
	s.Run("creates a waiting session and opens the compliance log", func() {
		orch := s.newOrchestrator(openConfig())

		snap := orch.Snapshot()
		s.Equal("sess-1", snap.ID)
		s.Equal(StatusWaiting, snap.Status)
		s.Nil(snap.StartedAt)
		s.False(snap.Recording)
		s.False(snap.ScreenShareActive)
		s.True(orch.Ready())
		s.Equal(1, countEvents(orch, compliance.EventSessionStarted))
	})

	s.Run("assigns an identifier when the setup has none", func() {
		setup := Setup{
			PatientID:  "pat-1",
			ProviderID: "prov-1",
			Config:     openConfig(),
			Compliance: compliance.Config{AuditLogging: true},
		}
		orch, err := New(context.Background(), setup, WithLogger(slog.New(slog.DiscardHandler)))
		s.Require().NoError(err)
		s.NotEmpty(orch.ID())
		s.Equal(TypeConsultation, orch.Snapshot().Type)
	})

	s.Run("rejects a setup without patient or provider", func() {
		_, err := New(context.Background(), Setup{ProviderID: "prov-1"})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = New(context.Background(), Setup{PatientID: "pat-1"})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects an unknown session type", func() {
		_, err := New(context.Background(), Setup{
			PatientID:  "pat-1",
			ProviderID: "prov-1",
			Type:       Type("seance"),
		})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// TestLifecycle tests the waiting/active/paused/ended state machine.
func (s *OrchestratorSuite) TestLifecycle() {
	s.Run("start moves waiting to active and stamps the start time", func() {
		orch := s.newOrchestrator(openConfig())
		startedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

		snap, err := orch.Start(requestcontext.WithTime(context.Background(), startedAt))
		s.Require().NoError(err)
		s.Equal(StatusActive, snap.Status)
		s.Require().NotNil(snap.StartedAt)
		s.Equal(startedAt, *snap.StartedAt)
		s.Equal(2, countEvents(orch, compliance.EventSessionStarted))
	})

	s.Run("starting an already-active session is a state conflict", func() {
		orch := s.newOrchestrator(openConfig())
		_, err := orch.Start(context.Background())
		s.Require().NoError(err)

		_, err = orch.Start(context.Background())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidSessionState))
	})

	s.Run("pause and resume flip between active and paused", func() {
		orch := s.newOrchestrator(openConfig())
		_, err := orch.Start(context.Background())
		s.Require().NoError(err)

		snap, err := orch.Pause(context.Background())
		s.Require().NoError(err)
		s.Equal(StatusPaused, snap.Status)
		s.True(orch.Ready())

		snap, err = orch.Resume(context.Background())
		s.Require().NoError(err)
		s.Equal(StatusActive, snap.Status)

		s.Equal(1, countEvents(orch, compliance.EventSessionPaused))
		s.Equal(1, countEvents(orch, compliance.EventSessionResumed))
	})

	s.Run("pause requires an active session and resume a paused one", func() {
		orch := s.newOrchestrator(openConfig())

		_, err := orch.Pause(context.Background())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidSessionState))

		_, err = orch.Resume(context.Background())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidSessionState))
	})

	s.Run("ending a session is terminal", func() {
		orch := s.newOrchestrator(openConfig())
		_, err := orch.End(context.Background(), "normal")
		s.Require().NoError(err)

		_, err = orch.Start(context.Background())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeSessionEnded))
		_, err = orch.End(context.Background(), "again")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeSessionEnded))
		s.False(orch.Ready())
	})
}

// TestEnd tests final analytics and the closing audit record.
func (s *OrchestratorSuite) TestEnd() {
	s.Run("start then end yields an ended session and matching analytics", func() {
		startedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
		orch := s.newOrchestratorAt(requestcontext.WithTime(context.Background(), startedAt), openConfig())
		s.join(orch, "prov-1", participant.RoleProvider)
		s.join(orch, "pat-1", participant.RolePatient)

		_, err := orch.Start(requestcontext.WithTime(context.Background(), startedAt))
		s.Require().NoError(err)

		endedAt := startedAt.Add(95 * time.Minute)
		analytics, err := orch.End(requestcontext.WithTime(context.Background(), endedAt), "normal")
		s.Require().NoError(err)

		s.Equal("sess-1", analytics.SessionID)
		s.Equal(StatusEnded, analytics.Status)
		s.Equal(2, analytics.ParticipantCount)
		s.Equal(95*time.Minute, analytics.Duration)
		s.Equal(100, analytics.ComplianceScore)
		s.Equal("normal", analytics.EndReason)

		snap := orch.Snapshot()
		s.Equal(StatusEnded, snap.Status)
		s.False(orch.Ready())
		s.Require().NotNil(snap.EndedAt)
		s.Equal(endedAt, *snap.EndedAt)

		ended, ok := lastEvent(orch, compliance.EventSessionEnded)
		s.Require().True(ok)
		s.Equal((95 * time.Minute).Seconds(), ended.Payload["duration_seconds"])
		s.Equal(2, ended.Payload["participant_count"])
		s.Equal("normal", ended.Payload["reason"])

		summary := orch.ComplianceSummary()
		s.Require().NotNil(summary.SessionDuration)
		s.Equal(95*time.Minute, *summary.SessionDuration)
	})

	s.Run("a session ended before starting reports zero duration", func() {
		orch := s.newOrchestrator(openConfig())

		analytics, err := orch.End(context.Background(), "cancelled")
		s.Require().NoError(err)
		s.Equal(time.Duration(0), analytics.Duration)
	})

	s.Run("counts only connected participants at the end", func() {
		orch := s.newOrchestrator(openConfig())
		s.join(orch, "prov-1", participant.RoleProvider)
		s.join(orch, "pat-1", participant.RolePatient)
		_, err := orch.RemoveParticipant(context.Background(), "pat-1")
		s.Require().NoError(err)

		analytics, err := orch.End(context.Background(), "normal")
		s.Require().NoError(err)
		s.Equal(1, analytics.ParticipantCount)
	})

	s.Run("releases a live recording and screen share on end", func() {
		ctrl := gomock.NewController(s.T())
		defer ctrl.Finish()
		mockMedia := mocks.NewMockController(ctrl)
		mockMedia.EXPECT().
			Acquire(gomock.Any(), media.CaptureScreenShare, "sess-1", "prov-1").
			Return(media.Capability{ID: "cap-ss", Kind: media.CaptureScreenShare}, nil)
		mockMedia.EXPECT().
			Acquire(gomock.Any(), media.CaptureRecording, "sess-1", "prov-1").
			Return(media.Capability{ID: "cap-rec", Kind: media.CaptureRecording}, nil)
		mockMedia.EXPECT().Release(gomock.Any(), gomock.Any()).Return(nil).Times(2)

		orch := s.newOrchestrator(openConfig(), WithMediaController(mockMedia))
		s.join(orch, "prov-1", participant.RoleProvider)
		_, err := orch.Start(context.Background())
		s.Require().NoError(err)
		_, err = orch.StartScreenShare(context.Background(), "prov-1")
		s.Require().NoError(err)
		_, err = orch.StartRecording(context.Background(), "prov-1")
		s.Require().NoError(err)

		_, err = orch.End(context.Background(), "normal")
		s.Require().NoError(err)

		snap := orch.Snapshot()
		s.False(snap.ScreenShareActive)
		s.False(snap.Recording)
		s.Equal(1, countEvents(orch, compliance.EventScreenShareStopped))
		s.Equal(1, countEvents(orch, compliance.EventRecordingStopped))
	})
}

// TestMembershipGate tests that an ended session refuses membership changes.
func (s *OrchestratorSuite) TestMembershipGate() {
	s.Run("all membership operations fail once the session has ended", func() {
		orch := s.newOrchestrator(openConfig())
		s.join(orch, "prov-1", participant.RoleProvider)
		inv, err := orch.Invite(context.Background(), "prov-1", "kim@example.org", "Dr. Kim", participant.RoleSpecialist, "")
		s.Require().NoError(err)

		_, err = orch.End(context.Background(), "normal")
		s.Require().NoError(err)

		_, err = orch.AddParticipant(context.Background(), participant.JoinRequest{ID: "late", Name: "Late", Role: participant.RolePatient})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeSessionEnded))

		_, err = orch.RemoveParticipant(context.Background(), "prov-1")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeSessionEnded))

		_, err = orch.Invite(context.Background(), "prov-1", "lee@example.org", "Dr. Lee", participant.RoleSpecialist, "")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeSessionEnded))

		_, err = orch.AcceptInvitation(context.Background(), inv.ID, "spec-1")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeSessionEnded))

		_, err = orch.UpdatePermissions(context.Background(), "prov-1", participant.PermissionPatch{})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeSessionEnded))

		err = orch.Mute(context.Background(), "prov-1", true, "prov-1")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeSessionEnded))
	})
}

// TestRemoveParticipant tests capability cleanup when a holder leaves.
func (s *OrchestratorSuite) TestRemoveParticipant() {
	s.Run("releases the screen share held by the leaving participant", func() {
		ctrl := gomock.NewController(s.T())
		defer ctrl.Finish()
		mockMedia := mocks.NewMockController(ctrl)
		capability := media.Capability{ID: "cap-ss", Kind: media.CaptureScreenShare, OwnerID: "prov-1"}
		mockMedia.EXPECT().
			Acquire(gomock.Any(), media.CaptureScreenShare, "sess-1", "prov-1").
			Return(capability, nil)
		mockMedia.EXPECT().Release(gomock.Any(), capability).Return(nil)

		orch := s.newOrchestrator(openConfig(), WithMediaController(mockMedia))
		s.join(orch, "prov-1", participant.RoleProvider)
		s.join(orch, "pat-1", participant.RolePatient)
		_, err := orch.Start(context.Background())
		s.Require().NoError(err)
		_, err = orch.StartScreenShare(context.Background(), "prov-1")
		s.Require().NoError(err)

		removed, err := orch.RemoveParticipant(context.Background(), "prov-1")
		s.Require().NoError(err)
		s.False(removed.Connected)
		s.False(orch.Snapshot().ScreenShareActive)

		stopped, ok := lastEvent(orch, compliance.EventScreenShareStopped)
		s.Require().True(ok)
		s.Equal("participant_left", stopped.Payload["reason"])
	})

	s.Run("leaves capabilities held by other participants alone", func() {
		orch := s.newOrchestrator(openConfig())
		s.join(orch, "prov-1", participant.RoleProvider)
		s.join(orch, "spec-1", participant.RoleSpecialist)
		_, err := orch.Start(context.Background())
		s.Require().NoError(err)
		_, err = orch.StartScreenShare(context.Background(), "prov-1")
		s.Require().NoError(err)

		_, err = orch.RemoveParticipant(context.Background(), "spec-1")
		s.Require().NoError(err)
		s.True(orch.Snapshot().ScreenShareActive)
	})
}

// TestScreenShare tests the screen share gates, flags, and idempotent stop.
func (s *OrchestratorSuite) TestScreenShare() {
	s.Run("a patient may not start a screen share but a provider may", func() {
		orch := s.newOrchestrator(openConfig())
		s.join(orch, "prov-1", participant.RoleProvider)
		s.join(orch, "pat-1", participant.RolePatient)
		_, err := orch.Start(context.Background())
		s.Require().NoError(err)

		_, err = orch.StartScreenShare(context.Background(), "pat-1")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInsufficientPermissions))
		s.False(orch.Snapshot().ScreenShareActive)

		snap, err := orch.StartScreenShare(context.Background(), "prov-1")
		s.Require().NoError(err)
		s.True(snap.ScreenShareActive)
		s.Equal(1, countEvents(orch, compliance.EventScreenShareStarted))
	})

	s.Run("a second concurrent share is a state conflict", func() {
		orch := s.newOrchestrator(openConfig())
		s.join(orch, "prov-1", participant.RoleProvider)
		s.join(orch, "spec-1", participant.RoleSpecialist)
		_, err := orch.Start(context.Background())
		s.Require().NoError(err)
		_, err = orch.StartScreenShare(context.Background(), "prov-1")
		s.Require().NoError(err)

		_, err = orch.StartScreenShare(context.Background(), "spec-1")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeScreenShareActive))
	})

	s.Run("the session-level gate overrides participant permissions", func() {
		cfg := openConfig()
		cfg.ScreenShareEnabled = false
		orch := s.newOrchestrator(cfg)
		s.join(orch, "prov-1", participant.RoleProvider)
		_, err := orch.Start(context.Background())
		s.Require().NoError(err)

		_, err = orch.StartScreenShare(context.Background(), "prov-1")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInsufficientPermissions))
	})

	s.Run("sharing requires an active session", func() {
		orch := s.newOrchestrator(openConfig())
		s.join(orch, "prov-1", participant.RoleProvider)

		_, err := orch.StartScreenShare(context.Background(), "prov-1")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidSessionState))
	})

	s.Run("a failed acquisition surfaces as a retryable technical error", func() {
		ctrl := gomock.NewController(s.T())
		defer ctrl.Finish()
		mockMedia := mocks.NewMockController(ctrl)
		mockMedia.EXPECT().
			Acquire(gomock.Any(), media.CaptureScreenShare, "sess-1", "prov-1").
			Return(media.Capability{}, sentinel.ErrUnavailable)

		orch := s.newOrchestrator(openConfig(), WithMediaController(mockMedia))
		s.join(orch, "prov-1", participant.RoleProvider)
		_, err := orch.Start(context.Background())
		s.Require().NoError(err)

		_, err = orch.StartScreenShare(context.Background(), "prov-1")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeMediaUnavailable))
		s.True(dErrors.IsRetryable(err))
		s.False(orch.Snapshot().ScreenShareActive)
		s.Equal(0, countEvents(orch, compliance.EventScreenShareStarted))
	})

	s.Run("stop is idempotent and silent when nothing is shared", func() {
		orch := s.newOrchestrator(openConfig())
		s.join(orch, "prov-1", participant.RoleProvider)
		_, err := orch.Start(context.Background())
		s.Require().NoError(err)

		snap, err := orch.StopScreenShare(context.Background())
		s.Require().NoError(err)
		s.False(snap.ScreenShareActive)
		s.Equal(0, countEvents(orch, compliance.EventScreenShareStopped))

		_, err = orch.StartScreenShare(context.Background(), "prov-1")
		s.Require().NoError(err)
		snap, err = orch.StopScreenShare(context.Background())
		s.Require().NoError(err)
		s.False(snap.ScreenShareActive)
		s.Equal(1, countEvents(orch, compliance.EventScreenShareStopped))

		_, err = orch.StopScreenShare(context.Background())
		s.Require().NoError(err)
		s.Equal(1, countEvents(orch, compliance.EventScreenShareStopped))
	})

	s.Run("a failed release still clears the flag and records the issue", func() {
		ctrl := gomock.NewController(s.T())
		defer ctrl.Finish()
		mockMedia := mocks.NewMockController(ctrl)
		mockMedia.EXPECT().
			Acquire(gomock.Any(), media.CaptureScreenShare, "sess-1", "prov-1").
			Return(media.Capability{ID: "cap-ss"}, nil)
		mockMedia.EXPECT().Release(gomock.Any(), gomock.Any()).Return(errors.New("backend gone"))

		orch := s.newOrchestrator(openConfig(), WithMediaController(mockMedia))
		s.join(orch, "prov-1", participant.RoleProvider)
		_, err := orch.Start(context.Background())
		s.Require().NoError(err)
		_, err = orch.StartScreenShare(context.Background(), "prov-1")
		s.Require().NoError(err)

		snap, err := orch.StopScreenShare(context.Background())
		s.Require().NoError(err)
		s.False(snap.ScreenShareActive)
		s.Equal(1, countEvents(orch, compliance.EventTechnicalIssue))
		s.Equal(1, countEvents(orch, compliance.EventScreenShareStopped))
	})
}

// TestRecording tests the recording gates mirroring screen share.
func (s *OrchestratorSuite) TestRecording() {
	s.Run("recording follows the permission and config gates", func() {
		orch := s.newOrchestrator(openConfig())
		s.join(orch, "prov-1", participant.RoleProvider)
		s.join(orch, "pat-1", participant.RolePatient)
		_, err := orch.Start(context.Background())
		s.Require().NoError(err)

		_, err = orch.StartRecording(context.Background(), "pat-1")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInsufficientPermissions))

		snap, err := orch.StartRecording(context.Background(), "prov-1")
		s.Require().NoError(err)
		s.True(snap.Recording)

		_, err = orch.StartRecording(context.Background(), "prov-1")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeRecordingActive))

		snap, err = orch.StopRecording(context.Background())
		s.Require().NoError(err)
		s.False(snap.Recording)
		s.Equal(1, countEvents(orch, compliance.EventRecordingStopped))
	})

	s.Run("a session that disallows recording refuses even the provider", func() {
		cfg := openConfig()
		cfg.RecordingEnabled = false
		orch := s.newOrchestrator(cfg)
		s.join(orch, "prov-1", participant.RoleProvider)
		_, err := orch.Start(context.Background())
		s.Require().NoError(err)

		_, err = orch.StartRecording(context.Background(), "prov-1")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInsufficientPermissions))
	})
}

// TestMute tests the mute privilege and its audit trail.
func (s *OrchestratorSuite) TestMute() {
	s.Run("a provider can mute and unmute a connected participant", func() {
		orch := s.newOrchestrator(openConfig())
		s.join(orch, "prov-1", participant.RoleProvider)
		s.join(orch, "pat-1", participant.RolePatient)

		err := orch.Mute(context.Background(), "pat-1", true, "prov-1")
		s.Require().NoError(err)
		muted, ok := lastEvent(orch, compliance.EventParticipantMuted)
		s.Require().True(ok)
		s.Equal("pat-1", muted.ParticipantID)
		s.Equal("prov-1", muted.Payload["requested_by"])

		err = orch.Mute(context.Background(), "pat-1", false, "prov-1")
		s.Require().NoError(err)
		s.Equal(1, countEvents(orch, compliance.EventParticipantUnmuted))
	})

	s.Run("a requester without the privilege fails with INSUFFICIENT_PERMISSIONS", func() {
		orch := s.newOrchestrator(openConfig())
		s.join(orch, "prov-1", participant.RoleProvider)
		s.join(orch, "pat-1", participant.RolePatient)

		err := orch.Mute(context.Background(), "prov-1", true, "pat-1")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInsufficientPermissions))
	})

	s.Run("an unknown or departed target cannot be muted", func() {
		orch := s.newOrchestrator(openConfig())
		s.join(orch, "prov-1", participant.RoleProvider)
		s.join(orch, "pat-1", participant.RolePatient)

		err := orch.Mute(context.Background(), "ghost", true, "prov-1")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeParticipantNotFound))

		_, err = orch.RemoveParticipant(context.Background(), "pat-1")
		s.Require().NoError(err)
		err = orch.Mute(context.Background(), "pat-1", true, "prov-1")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeParticipantDisconnected))
	})
}

// TestComplianceViews tests the pass-through audit queries and the export.
func (s *OrchestratorSuite) TestComplianceViews() {
	s.Run("the export carries every logged event and a matching summary", func() {
		orch := s.newOrchestrator(openConfig())
		s.join(orch, "prov-1", participant.RoleProvider)
		s.join(orch, "pat-1", participant.RolePatient)
		_, err := orch.Start(context.Background())
		s.Require().NoError(err)
		err = orch.Mute(context.Background(), "pat-1", true, "prov-1")
		s.Require().NoError(err)
		_, err = orch.End(context.Background(), "normal")
		s.Require().NoError(err)

		logged := len(orch.ComplianceEvents())
		export := orch.ComplianceExport(context.Background())
		s.Equal("sess-1", export.SessionID)
		s.Len(export.Events, logged)
		s.Equal(logged, export.Summary.TotalEvents)
	})

	s.Run("analytics track a live session", func() {
		startedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
		orch := s.newOrchestratorAt(requestcontext.WithTime(context.Background(), startedAt), openConfig())
		s.join(orch, "prov-1", participant.RoleProvider)
		_, err := orch.Start(requestcontext.WithTime(context.Background(), startedAt))
		s.Require().NoError(err)

		analytics := orch.Analytics(requestcontext.WithTime(context.Background(), startedAt.Add(10*time.Minute)))
		s.Equal(StatusActive, analytics.Status)
		s.Equal(1, analytics.ParticipantCount)
		s.Equal(10*time.Minute, analytics.Duration)
		s.Empty(analytics.EndReason)
	})

	s.Run("technical issues lower the compliance score in analytics", func() {
		ctrl := gomock.NewController(s.T())
		defer ctrl.Finish()
		mockMedia := mocks.NewMockController(ctrl)
		mockMedia.EXPECT().Acquire(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(media.Capability{ID: "cap"}, nil)
		mockMedia.EXPECT().Release(gomock.Any(), gomock.Any()).Return(errors.New("backend gone"))

		orch := s.newOrchestrator(openConfig(), WithMediaController(mockMedia))
		s.join(orch, "prov-1", participant.RoleProvider)
		_, err := orch.Start(context.Background())
		s.Require().NoError(err)
		_, err = orch.StartRecording(context.Background(), "prov-1")
		s.Require().NoError(err)

		analytics, err := orch.End(context.Background(), "normal")
		s.Require().NoError(err)
		s.Equal(90, analytics.ComplianceScore)
	})
}

// TestPermissionProbe tests the caller-facing permission lookup.
func (s *OrchestratorSuite) TestPermissionProbe() {
	s.Run("exposes the underlying permission matrix", func() {
		orch := s.newOrchestrator(openConfig())
		s.join(orch, "prov-1", participant.RoleProvider)
		s.join(orch, "pat-1", participant.RolePatient)

		s.True(orch.CanPerform("prov-1", participant.ActionEndSession))
		s.False(orch.CanPerform("pat-1", participant.ActionEndSession))
		s.False(orch.CanPerform("ghost", participant.ActionEndSession))
	})
}
