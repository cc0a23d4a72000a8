package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"telesession/internal/session"
	"telesession/pkg/platform/httputil"
	"telesession/pkg/requestcontext"
)

// handleCreateSession handles POST /sessions.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateSessionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	orch, err := h.registry.Create(ctx, req.Setup())
	if err != nil {
		h.logFailure(ctx, "session creation failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, orch.Snapshot())
}

// handleListSessions handles GET /sessions.
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := lo.Map(h.registry.List(), func(orch *session.Orchestrator, _ int) session.Session {
		return orch.Snapshot()
	})
	httputil.WriteJSON(w, http.StatusOK, SessionListResponse{Sessions: sessions})
}

// handleGetSession handles GET /sessions/{sessionID}.
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orch.Snapshot())
}

// handleDeleteSession handles DELETE /sessions/{sessionID}. The session is
// ended if still live; the response carries the final compliance export.
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")

	export, err := h.registry.Remove(ctx, sessionID, "session_deleted")
	if err != nil {
		h.logFailure(ctx, "session deletion failed", err, "session_id", sessionID)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "session deleted",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sessionID,
		"log_type", "audit",
	)
	httputil.WriteJSON(w, http.StatusOK, export)
}

// handleStartSession handles POST /sessions/{sessionID}/start.
func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	snap, err := orch.Start(ctx)
	if err != nil {
		h.logFailure(ctx, "session start failed", err, "session_id", orch.ID())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// handlePauseSession handles POST /sessions/{sessionID}/pause.
func (h *Handler) handlePauseSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	snap, err := orch.Pause(ctx)
	if err != nil {
		h.logFailure(ctx, "session pause failed", err, "session_id", orch.ID())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// handleResumeSession handles POST /sessions/{sessionID}/resume.
func (h *Handler) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	snap, err := orch.Resume(ctx)
	if err != nil {
		h.logFailure(ctx, "session resume failed", err, "session_id", orch.ID())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// handleEndSession handles POST /sessions/{sessionID}/end. The body is
// optional; an absent reason records the end as "normal".
func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	reason := "normal"
	if r.ContentLength != 0 {
		req, ok := httputil.DecodeAndPrepare[EndSessionRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		reason = req.Reason
	}

	analytics, err := orch.End(ctx, reason)
	if err != nil {
		h.logFailure(ctx, "session end failed", err, "session_id", orch.ID())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, analytics)
}

// handleAnalytics handles GET /sessions/{sessionID}/analytics.
func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orch.Analytics(r.Context()))
}

// handleComplianceSummary handles GET /sessions/{sessionID}/compliance/summary.
func (h *Handler) handleComplianceSummary(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orch.ComplianceSummary())
}

// handleComplianceExport handles GET /sessions/{sessionID}/compliance/export.
func (h *Handler) handleComplianceExport(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orch.ComplianceExport(r.Context()))
}
