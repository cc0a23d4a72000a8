// Package media defines the boundary to the audio/video capture backend.
//
// The orchestrator never talks to capture hardware or a media server
// directly; it acquires and releases capabilities through a Controller and
// treats every failure as a retryable technical fault. Capabilities follow
// scoped-resource discipline: acquired only when a start operation succeeds
// and released on every exit path (explicit stop, participant removal,
// session end).
package media

import (
	"context"
	"time"
)

// CaptureKind identifies the resource class a capability covers.
type CaptureKind string

const (
	CaptureRecording   CaptureKind = "recording"
	CaptureScreenShare CaptureKind = "screen_share"
)

// IsValid reports whether the kind is one of the defined capture kinds.
func (k CaptureKind) IsValid() bool {
	switch k {
	case CaptureRecording, CaptureScreenShare:
		return true
	}
	return false
}

// String returns the string representation.
func (k CaptureKind) String() string {
	return string(k)
}

// Capability is a held media resource. It is returned by Acquire and must be
// passed back to Release when the holder is done with it.
type Capability struct {
	ID         string
	Kind       CaptureKind
	SessionID  string
	OwnerID    string
	AcquiredAt time.Time
}

// Controller acquires and releases capture capabilities for a session.
type Controller interface {
	// Acquire obtains a capability of the given kind for ownerID within
	// sessionID. At most one capability per (session, kind) may be live at a
	// time; a second Acquire fails until the first is released.
	Acquire(ctx context.Context, kind CaptureKind, sessionID, ownerID string) (Capability, error)

	// Release returns a capability. Releasing a capability that is no longer
	// held is a no-op so callers can release unconditionally on exit paths.
	Release(ctx context.Context, cap Capability) error
}
