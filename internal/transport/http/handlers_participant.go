package httptransport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"telesession/pkg/platform/httputil"
	"telesession/pkg/requestcontext"
)

// handleAddParticipant handles POST /sessions/{sessionID}/participants.
func (h *Handler) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[JoinParticipantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := orch.AddParticipant(ctx, req.JoinRequest())
	if err != nil {
		h.logFailure(ctx, "participant admission failed", err,
			"session_id", orch.ID(),
			"participant_id", req.ID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

// handleListParticipants handles GET /sessions/{sessionID}/participants.
// The connected=true query narrows the roster to present participants.
func (h *Handler) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	participants := orch.Participants()
	if connected, err := strconv.ParseBool(r.URL.Query().Get("connected")); err == nil && connected {
		participants = orch.ConnectedParticipants()
	}
	httputil.WriteJSON(w, http.StatusOK, ParticipantListResponse{Participants: participants})
}

// handleRemoveParticipant handles DELETE /sessions/{sessionID}/participants/{participantID}.
func (h *Handler) handleRemoveParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	participantID := chi.URLParam(r, "participantID")
	p, err := orch.RemoveParticipant(ctx, participantID)
	if err != nil {
		h.logFailure(ctx, "participant removal failed", err,
			"session_id", orch.ID(),
			"participant_id", participantID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// handleUpdatePermissions handles PATCH /sessions/{sessionID}/participants/{participantID}/permissions.
func (h *Handler) handleUpdatePermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdatePermissionsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	participantID := chi.URLParam(r, "participantID")
	p, err := orch.UpdatePermissions(ctx, participantID, req.Patch())
	if err != nil {
		h.logFailure(ctx, "permission update failed", err,
			"session_id", orch.ID(),
			"participant_id", participantID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// handleMuteParticipant handles POST /sessions/{sessionID}/participants/{participantID}/mute.
func (h *Handler) handleMuteParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[MuteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	participantID := chi.URLParam(r, "participantID")
	if err := orch.Mute(ctx, participantID, *req.Muted, req.RequestedBy); err != nil {
		h.logFailure(ctx, "mute request failed", err,
			"session_id", orch.ID(),
			"participant_id", participantID,
			"requested_by", req.RequestedBy,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
