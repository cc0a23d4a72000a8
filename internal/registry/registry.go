// Package registry tracks every session orchestrator hosted by this process,
// from creation through teardown.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"telesession/internal/compliance"
	"telesession/internal/session"
	"telesession/internal/session/metrics"
	dErrors "telesession/pkg/domain-errors"
)

// Defaults fill the gaps of a session setup that does not spell out its own
// policy. Loaded from service configuration.
type Defaults struct {
	MaxParticipants int
	InvitationTTL   time.Duration
}

// Registry is the in-memory index of hosted sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Orchestrator
	order    []string

	defaults    Defaults
	sessionOpts []session.Option
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures optional collaborators on the registry.
type Option func(*Registry)

// WithLogger overrides the default process logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMetrics attaches session metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithSessionOptions forwards orchestrator options to every session the
// registry creates.
func WithSessionOptions(opts ...session.Option) Option {
	return func(r *Registry) {
		r.sessionOpts = opts
	}
}

// New builds an empty registry.
func New(defaults Defaults, opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*session.Orchestrator),
		defaults: defaults,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create builds an orchestrator from the setup, filling policy gaps from the
// registry defaults, and indexes it under its session ID.
func (r *Registry) Create(ctx context.Context, setup session.Setup) (*session.Orchestrator, error) {
	if setup.Config.MaxParticipants <= 0 {
		setup.Config.MaxParticipants = r.defaults.MaxParticipants
	}
	if setup.Config.InvitationTTL <= 0 {
		setup.Config.InvitationTTL = r.defaults.InvitationTTL
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[setup.ID]; exists {
		return nil, dErrors.Newf(dErrors.CodeSessionExists, "session %s already exists", setup.ID)
	}

	orch, err := session.New(ctx, setup, r.sessionOpts...)
	if err != nil {
		return nil, err
	}

	r.sessions[orch.ID()] = orch
	r.order = append(r.order, orch.ID())
	r.metrics.SessionOpened()
	r.logger.InfoContext(ctx, "session created",
		"session_id", orch.ID(),
		"session_count", len(r.sessions),
	)
	return orch, nil
}

// Get looks up a hosted session, live or ended.
func (r *Registry) Get(sessionID string) (*session.Orchestrator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orch, ok := r.sessions[sessionID]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeSessionNotFound, "session %s not found", sessionID)
	}
	return orch, nil
}

// List returns the hosted orchestrators in creation order.
func (r *Registry) List() []*session.Orchestrator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*session.Orchestrator, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}

// Count reports how many sessions the registry currently tracks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Remove ends the session if it is still live and detaches it from the
// registry. The returned compliance export is the last chance to read the
// session's audit trail.
func (r *Registry) Remove(ctx context.Context, sessionID, reason string) (compliance.Export, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	orch, ok := r.sessions[sessionID]
	if !ok {
		return compliance.Export{}, dErrors.Newf(dErrors.CodeSessionNotFound, "session %s not found", sessionID)
	}
	if _, err := orch.End(ctx, reason); err != nil && !dErrors.HasCode(err, dErrors.CodeSessionEnded) {
		return compliance.Export{}, err
	}

	export := orch.ComplianceExport(ctx)
	delete(r.sessions, sessionID)
	r.order = lo.Without(r.order, sessionID)
	r.metrics.SessionClosed()
	r.logger.InfoContext(ctx, "session removed",
		"session_id", sessionID,
		"reason", reason,
	)
	return export, nil
}

// Shutdown ends every live session concurrently. Sessions stay readable in
// the registry afterwards. All ends are attempted; the first failure wins.
func (r *Registry) Shutdown(ctx context.Context, reason string) error {
	live := lo.Filter(r.List(), func(orch *session.Orchestrator, _ int) bool {
		return orch.Ready()
	})
	if len(live) == 0 {
		return nil
	}

	r.logger.InfoContext(ctx, "ending live sessions",
		"session_count", len(live),
		"reason", reason,
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, orch := range live {
		g.Go(func() error {
			if _, err := orch.End(ctx, reason); err != nil && !dErrors.HasCode(err, dErrors.CodeSessionEnded) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
