// Package domainerrors defines code-based domain errors shared across modules.
//
// Every failure a service returns carries a stable machine-readable code, a
// human-readable message, an error kind (technical, permission, validation,
// state), and a retryable flag. Transport layers translate codes into HTTP
// statuses; services branch on codes with HasCode instead of string matching.
//
// Infrastructure facts (not found in a store, expired token) are expressed
// with pkg/platform/sentinel and wrapped into domain errors at service
// boundaries.
package domainerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error for callers that care about the failure
// class rather than the specific code.
type Kind string

const (
	KindTechnical  Kind = "technical"
	KindPermission Kind = "permission"
	KindValidation Kind = "validation"
	KindState      Kind = "state"
)

// Code identifies a specific failure condition.
type Code string

const (
	// Membership and capacity.
	CodeParticipantExists       Code = "PARTICIPANT_EXISTS"
	CodeParticipantNotFound     Code = "PARTICIPANT_NOT_FOUND"
	CodeParticipantDisconnected Code = "PARTICIPANT_DISCONNECTED"
	CodeSessionFull             Code = "SESSION_FULL"

	// Permissions.
	CodeInsufficientPermissions Code = "INSUFFICIENT_PERMISSIONS"

	// Invitations.
	CodeInvitationNotFound         Code = "INVITATION_NOT_FOUND"
	CodeInvitationAlreadyProcessed Code = "INVITATION_ALREADY_PROCESSED"
	CodeInvitationExpired          Code = "INVITATION_EXPIRED"
	CodeInvitationTokenInvalid     Code = "INVITATION_TOKEN_INVALID"

	// Session lifecycle.
	CodeSessionExists       Code = "SESSION_EXISTS"
	CodeSessionNotFound     Code = "SESSION_NOT_FOUND"
	CodeSessionEnded        Code = "SESSION_ENDED"
	CodeInvalidSessionState Code = "INVALID_SESSION_STATE"
	CodeScreenShareActive   Code = "SCREEN_SHARE_ACTIVE"
	CodeRecordingActive     Code = "RECORDING_ACTIVE"

	// Technical.
	CodeMediaUnavailable Code = "MEDIA_UNAVAILABLE"
	CodeInternal         Code = "INTERNAL_ERROR"

	// Input validation.
	CodeInvalidInput Code = "INVALID_INPUT"
)

// codeKinds maps every code to its kind. Codes absent from the map are
// treated as internal technical failures.
var codeKinds = map[Code]Kind{
	CodeParticipantExists:       KindValidation,
	CodeParticipantNotFound:     KindValidation,
	CodeParticipantDisconnected: KindState,
	CodeSessionFull:             KindState,

	CodeInsufficientPermissions: KindPermission,

	CodeInvitationNotFound:         KindValidation,
	CodeInvitationAlreadyProcessed: KindState,
	CodeInvitationExpired:          KindState,
	CodeInvitationTokenInvalid:     KindValidation,

	CodeSessionExists:       KindValidation,
	CodeSessionNotFound:     KindValidation,
	CodeSessionEnded:        KindState,
	CodeInvalidSessionState: KindState,
	CodeScreenShareActive:   KindState,
	CodeRecordingActive:     KindState,

	CodeMediaUnavailable: KindTechnical,
	CodeInternal:         KindTechnical,

	CodeInvalidInput: KindValidation,
}

// Error is the concrete domain error type. Construct with New or Wrap.
type Error struct {
	Code      Code
	Message   string
	Kind      Kind
	Retryable bool

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is treats two domain errors with the same code and message as equal,
// regardless of wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a domain error with the given code and message. Kind and
// retryability are derived from the code: technical failures are retryable,
// everything else is a caller error that will not succeed unchanged.
func New(code Code, message string) error {
	kind := kindOf(code)
	return &Error{
		Code:      code,
		Message:   message,
		Kind:      kind,
		Retryable: kind == KindTechnical,
	}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a domain error that preserves the underlying cause.
func Wrap(err error, code Code, message string) error {
	kind := kindOf(code)
	return &Error{
		Code:      code,
		Message:   message,
		Kind:      kind,
		Retryable: kind == KindTechnical,
		cause:     err,
	}
}

// HasCode reports whether err (or anything it wraps) is a domain error with
// the given code.
func HasCode(err error, code Code) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost domain error in err's chain, or
// CodeInternal when err is not a domain error.
func CodeOf(err error) Code {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return CodeInternal
}

// KindOf returns the kind of the outermost domain error in err's chain, or
// KindTechnical when err is not a domain error.
func KindOf(err error) Kind {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Kind
	}
	return KindTechnical
}

// IsRetryable reports whether the caller may retry the failed operation
// without changing it. Non-domain errors are treated as retryable technical
// failures.
func IsRetryable(err error) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Retryable
	}
	return true
}

func kindOf(code Code) Kind {
	if kind, ok := codeKinds[code]; ok {
		return kind
	}
	return KindTechnical
}
