package media

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"telesession/pkg/platform/sentinel"
	"telesession/pkg/requestcontext"
)

// LocalController is the in-process Controller used when no external media
// backend is wired. It enforces the one-capability-per-(session, kind) rule
// and is safe for concurrent use.
type LocalController struct {
	mu   sync.Mutex
	held map[string]Capability // key: sessionID + "/" + kind
}

// NewLocalController creates an empty local controller.
func NewLocalController() *LocalController {
	return &LocalController{
		held: make(map[string]Capability),
	}
}

// Acquire obtains a capability, failing with sentinel.ErrConflict when one of
// the same kind is already live for the session.
func (c *LocalController) Acquire(ctx context.Context, kind CaptureKind, sessionID, ownerID string) (Capability, error) {
	if !kind.IsValid() {
		return Capability{}, sentinel.ErrInvalidState
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := capabilityKey(sessionID, kind)
	if _, exists := c.held[key]; exists {
		return Capability{}, sentinel.ErrConflict
	}

	cap := Capability{
		ID:         uuid.NewString(),
		Kind:       kind,
		SessionID:  sessionID,
		OwnerID:    ownerID,
		AcquiredAt: requestcontext.Now(ctx),
	}
	c.held[key] = cap
	return cap, nil
}

// Release returns a capability. Unknown or already-released capabilities are
// ignored so exit paths can release unconditionally.
func (c *LocalController) Release(_ context.Context, cap Capability) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := capabilityKey(cap.SessionID, cap.Kind)
	if held, exists := c.held[key]; exists && held.ID == cap.ID {
		delete(c.held, key)
	}
	return nil
}

// Held reports whether a capability of the given kind is live for the session.
func (c *LocalController) Held(sessionID string, kind CaptureKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.held[capabilityKey(sessionID, kind)]
	return exists
}

func capabilityKey(sessionID string, kind CaptureKind) string {
	return sessionID + "/" + string(kind)
}
