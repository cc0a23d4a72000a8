package httptransport

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"telesession/internal/compliance"
	"telesession/internal/participant"
	"telesession/internal/session"
	dErrors "telesession/pkg/domain-errors"
	"telesession/pkg/email"
)

const defaultRetentionDays = 365

var validate = newValidator()

// newValidator builds the shared validator with json tag names so failure
// messages match the wire field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs tag-level validation and converts the first failure
// into a domain validation error.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return dErrors.Newf(dErrors.CodeInvalidInput, "field %s failed on the %s rule", fe.Field(), fe.Tag())
	}
	return dErrors.New(dErrors.CodeInvalidInput, "invalid request")
}

// defaultSessionConfig is the policy applied when a create request carries no
// config. Capacity and invitation TTL stay zero so the registry defaults fill
// them.
func defaultSessionConfig() session.Config {
	return session.Config{
		RecordingEnabled:   true,
		EncryptionRequired: true,
		ScreenShareEnabled: true,
		ThirdPartyEnabled:  true,
	}
}

// CreateSessionRequest is the body for POST /sessions.
type CreateSessionRequest struct {
	ID             string                   `json:"id" validate:"omitempty,max=128"`
	PatientID      string                   `json:"patient_id" validate:"required,max=128"`
	ProviderID     string                   `json:"provider_id" validate:"required,max=128"`
	Type           string                   `json:"type"`
	ScheduledStart time.Time                `json:"scheduled_start"`
	ScheduledEnd   time.Time                `json:"scheduled_end"`
	Config         *SessionConfigRequest    `json:"config"`
	Compliance     *ComplianceConfigRequest `json:"compliance"`

	parsedType session.Type
}

// Validate implements httputil.Validatable.
func (r *CreateSessionRequest) Validate() error {
	sanitize(r)
	if err := validateStruct(r); err != nil {
		return err
	}

	parsed, err := session.ParseType(r.Type)
	if err != nil {
		return err
	}
	r.parsedType = parsed
	return nil
}

// Setup converts the request into a session setup with transport defaults
// applied.
func (r *CreateSessionRequest) Setup() session.Setup {
	setup := session.Setup{
		ID:             r.ID,
		PatientID:      r.PatientID,
		ProviderID:     r.ProviderID,
		Type:           r.parsedType,
		ScheduledStart: r.ScheduledStart,
		ScheduledEnd:   r.ScheduledEnd,
		Config:         defaultSessionConfig(),
		Compliance: compliance.Config{
			AuditLogging:  true,
			LogLevel:      compliance.LogLevelStandard,
			RetentionDays: defaultRetentionDays,
		},
	}
	if r.Config != nil {
		setup.Config = r.Config.Config()
	}
	if r.Compliance != nil {
		setup.Compliance = r.Compliance.Config()
	}
	return setup
}

// SessionConfigRequest overrides parts of the default session policy. Absent
// booleans keep their defaults.
type SessionConfigRequest struct {
	MaxParticipants       int   `json:"max_participants" validate:"omitempty,min=1,max=64"`
	RecordingEnabled      *bool `json:"recording_enabled"`
	TranscriptionEnabled  *bool `json:"transcription_enabled"`
	EncryptionRequired    *bool `json:"encryption_required"`
	ScreenShareEnabled    *bool `json:"screen_share_enabled"`
	ThirdPartyEnabled     *bool `json:"third_party_enabled"`
	InvitationTTLSeconds  int   `json:"invitation_ttl_seconds" validate:"omitempty,min=60,max=604800"`
	SessionTimeoutSeconds int   `json:"session_timeout_seconds" validate:"omitempty,min=60,max=86400"`
}

// Config resolves the request against the transport defaults.
func (r *SessionConfigRequest) Config() session.Config {
	cfg := defaultSessionConfig()
	cfg.MaxParticipants = r.MaxParticipants
	cfg.InvitationTTL = time.Duration(r.InvitationTTLSeconds) * time.Second
	cfg.SessionTimeout = time.Duration(r.SessionTimeoutSeconds) * time.Second
	if r.RecordingEnabled != nil {
		cfg.RecordingEnabled = *r.RecordingEnabled
	}
	if r.TranscriptionEnabled != nil {
		cfg.TranscriptionEnabled = *r.TranscriptionEnabled
	}
	if r.EncryptionRequired != nil {
		cfg.EncryptionRequired = *r.EncryptionRequired
	}
	if r.ScreenShareEnabled != nil {
		cfg.ScreenShareEnabled = *r.ScreenShareEnabled
	}
	if r.ThirdPartyEnabled != nil {
		cfg.ThirdPartyEnabled = *r.ThirdPartyEnabled
	}
	return cfg
}

// ComplianceConfigRequest overrides the default audit policy.
type ComplianceConfigRequest struct {
	AuditLogging  *bool  `json:"audit_logging"`
	LogLevel      string `json:"log_level" validate:"omitempty,oneof=minimal standard detailed"`
	RetentionDays int    `json:"retention_days" validate:"omitempty,min=1,max=3650"`
}

// Config resolves the request against the default audit policy.
func (r *ComplianceConfigRequest) Config() compliance.Config {
	cfg := compliance.Config{
		AuditLogging:  true,
		LogLevel:      compliance.LogLevelStandard,
		RetentionDays: defaultRetentionDays,
	}
	if r.AuditLogging != nil {
		cfg.AuditLogging = *r.AuditLogging
	}
	if r.LogLevel != "" {
		cfg.LogLevel = compliance.LogLevel(r.LogLevel)
	}
	if r.RetentionDays > 0 {
		cfg.RetentionDays = r.RetentionDays
	}
	return cfg
}

// EndSessionRequest is the optional body for POST /sessions/{id}/end.
type EndSessionRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

// Validate implements httputil.Validatable. An absent reason becomes "normal".
func (r *EndSessionRequest) Validate() error {
	sanitize(r)
	if err := validateStruct(r); err != nil {
		return err
	}
	if r.Reason == "" {
		r.Reason = "normal"
	}
	return nil
}

// JoinParticipantRequest is the body for POST /sessions/{id}/participants.
type JoinParticipantRequest struct {
	ID      string `json:"id" validate:"required,max=128"`
	Name    string `json:"name" validate:"required,max=255"`
	Role    string `json:"role" validate:"required"`
	Contact string `json:"contact" validate:"omitempty,max=255"`

	parsedRole participant.Role
}

// Validate implements httputil.Validatable.
func (r *JoinParticipantRequest) Validate() error {
	sanitize(r)
	if err := validateStruct(r); err != nil {
		return err
	}

	role, err := participant.ParseRole(r.Role)
	if err != nil {
		return err
	}
	r.parsedRole = role
	return nil
}

// JoinRequest converts to the domain join request.
func (r *JoinParticipantRequest) JoinRequest() participant.JoinRequest {
	return participant.JoinRequest{
		ID:      r.ID,
		Name:    r.Name,
		Role:    r.parsedRole,
		Contact: r.Contact,
	}
}

// UpdatePermissionsRequest is the body for PATCH .../permissions. Absent
// fields keep the participant's current flags.
type UpdatePermissionsRequest struct {
	CanEndSession    *bool `json:"can_end_session"`
	CanMuteOthers    *bool `json:"can_mute_others"`
	CanRecordSession *bool `json:"can_record_session"`
	CanInviteOthers  *bool `json:"can_invite_others"`
	CanScreenShare   *bool `json:"can_screen_share"`
}

// Validate implements httputil.Validatable.
func (r *UpdatePermissionsRequest) Validate() error {
	if r.CanEndSession == nil && r.CanMuteOthers == nil && r.CanRecordSession == nil &&
		r.CanInviteOthers == nil && r.CanScreenShare == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "no permission changes supplied")
	}
	return nil
}

// Patch converts to the domain permission patch.
func (r *UpdatePermissionsRequest) Patch() participant.PermissionPatch {
	return participant.PermissionPatch{
		CanEndSession:    r.CanEndSession,
		CanMuteOthers:    r.CanMuteOthers,
		CanRecordSession: r.CanRecordSession,
		CanInviteOthers:  r.CanInviteOthers,
		CanScreenShare:   r.CanScreenShare,
	}
}

// MuteRequest is the body for POST .../participants/{id}/mute.
type MuteRequest struct {
	Muted       *bool  `json:"muted" validate:"required"`
	RequestedBy string `json:"requested_by" validate:"required,max=128"`
}

// Validate implements httputil.Validatable.
func (r *MuteRequest) Validate() error {
	sanitize(r)
	return validateStruct(r)
}

// InviteRequest is the body for POST /sessions/{id}/invitations. The invitee
// name is optional; when absent it is derived from the email address.
type InviteRequest struct {
	InviterID string `json:"inviter_id" validate:"required,max=128"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Name      string `json:"name" validate:"omitempty,max=255"`
	Role      string `json:"role" validate:"required"`
	Message   string `json:"message" validate:"omitempty,max=500"`

	parsedRole participant.Role
}

// Validate implements httputil.Validatable.
func (r *InviteRequest) Validate() error {
	sanitize(r)
	if err := validateStruct(r); err != nil {
		return err
	}

	role, err := participant.ParseRole(r.Role)
	if err != nil {
		return err
	}
	r.parsedRole = role

	if r.Name == "" {
		r.Name = email.DisplayName(r.Email)
	}
	return nil
}

// ParsedRole returns the validated role.
func (r *InviteRequest) ParsedRole() participant.Role {
	return r.parsedRole
}

// AcceptInvitationRequest is the body for POST /sessions/{id}/invitations/accept.
type AcceptInvitationRequest struct {
	Token         string `json:"token" validate:"required"`
	ParticipantID string `json:"participant_id" validate:"required,max=128"`
}

// Validate implements httputil.Validatable.
func (r *AcceptInvitationRequest) Validate() error {
	sanitize(r)
	return validateStruct(r)
}

// MediaRequest names the participant starting a recording or screen share.
type MediaRequest struct {
	ParticipantID string `json:"participant_id" validate:"required,max=128"`
}

// Validate implements httputil.Validatable.
func (r *MediaRequest) Validate() error {
	sanitize(r)
	return validateStruct(r)
}
