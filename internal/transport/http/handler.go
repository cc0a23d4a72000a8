// Package httptransport exposes the session orchestration API over HTTP. The
// handlers decode and validate requests, delegate to the domain, and render
// failures through the shared error envelope; business rules stay out of this
// layer.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"telesession/internal/invitetoken"
	"telesession/internal/registry"
	"telesession/internal/session"
	dErrors "telesession/pkg/domain-errors"
	"telesession/pkg/platform/httputil"
	"telesession/pkg/requestcontext"
)

const serviceName = "telesession"

// Handler is the thin HTTP layer over the session registry.
type Handler struct {
	registry *registry.Registry
	tokens   *invitetoken.Service
	logger   *slog.Logger
	version  string
}

// New constructs the API handler with its dependencies.
func New(reg *registry.Registry, tokens *invitetoken.Service, logger *slog.Logger, version string) *Handler {
	return &Handler{
		registry: reg,
		tokens:   tokens,
		logger:   logger,
		version:  version,
	}
}

// Register mounts every session endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.handleCreateSession)
		r.Get("/", h.handleListSessions)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.handleGetSession)
			r.Delete("/", h.handleDeleteSession)
			r.Post("/start", h.handleStartSession)
			r.Post("/pause", h.handlePauseSession)
			r.Post("/resume", h.handleResumeSession)
			r.Post("/end", h.handleEndSession)
			r.Get("/analytics", h.handleAnalytics)

			r.Route("/participants", func(r chi.Router) {
				r.Post("/", h.handleAddParticipant)
				r.Get("/", h.handleListParticipants)
				r.Delete("/{participantID}", h.handleRemoveParticipant)
				r.Patch("/{participantID}/permissions", h.handleUpdatePermissions)
				r.Post("/{participantID}/mute", h.handleMuteParticipant)
			})

			r.Route("/invitations", func(r chi.Router) {
				r.Post("/", h.handleInvite)
				r.Get("/", h.handleListInvitations)
				r.Post("/accept", h.handleAcceptInvitation)
				r.Post("/{invitationID}/reject", h.handleRejectInvitation)
			})

			r.Post("/screen-share/start", h.handleStartScreenShare)
			r.Post("/screen-share/stop", h.handleStopScreenShare)
			r.Post("/recording/start", h.handleStartRecording)
			r.Post("/recording/stop", h.handleStopRecording)

			r.Get("/compliance/summary", h.handleComplianceSummary)
			r.Get("/compliance/export", h.handleComplianceExport)
		})
	})
}

// handleHealth reports liveness in the shape monitoring expects.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   serviceName,
		Timestamp: requestcontext.Now(r.Context()),
		Version:   h.version,
	})
}

// lookup resolves the orchestrator addressed by the route, writing the error
// response itself when the session is unknown.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*session.Orchestrator, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	orch, err := h.registry.Get(sessionID)
	if err != nil {
		h.logFailure(r.Context(), "session lookup failed", err, "session_id", sessionID)
		httputil.WriteError(w, err)
		return nil, false
	}
	return orch, true
}

// logFailure records a failed operation at a severity matching its kind:
// technical failures are errors, everything else is caller trouble.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	base := []any{
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	}
	if dErrors.KindOf(err) == dErrors.KindTechnical {
		h.logger.ErrorContext(ctx, msg, append(base, attrs...)...)
		return
	}
	h.logger.WarnContext(ctx, msg, append(base, attrs...)...)
}
