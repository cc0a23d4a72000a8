package httptransport

import (
	"net/http"

	"telesession/pkg/platform/httputil"
	"telesession/pkg/requestcontext"
)

// handleStartScreenShare handles POST /sessions/{sessionID}/screen-share/start.
func (h *Handler) handleStartScreenShare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[MediaRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	snap, err := orch.StartScreenShare(ctx, req.ParticipantID)
	if err != nil {
		h.logFailure(ctx, "screen share start failed", err,
			"session_id", orch.ID(),
			"participant_id", req.ParticipantID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// handleStopScreenShare handles POST /sessions/{sessionID}/screen-share/stop.
func (h *Handler) handleStopScreenShare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	snap, err := orch.StopScreenShare(ctx)
	if err != nil {
		h.logFailure(ctx, "screen share stop failed", err, "session_id", orch.ID())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// handleStartRecording handles POST /sessions/{sessionID}/recording/start.
func (h *Handler) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[MediaRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	snap, err := orch.StartRecording(ctx, req.ParticipantID)
	if err != nil {
		h.logFailure(ctx, "recording start failed", err,
			"session_id", orch.ID(),
			"participant_id", req.ParticipantID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// handleStopRecording handles POST /sessions/{sessionID}/recording/stop.
func (h *Handler) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	snap, err := orch.StopRecording(ctx)
	if err != nil {
		h.logFailure(ctx, "recording stop failed", err, "session_id", orch.ID())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}
