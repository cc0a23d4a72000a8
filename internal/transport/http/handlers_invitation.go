package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "telesession/pkg/domain-errors"
	"telesession/pkg/platform/httputil"
	"telesession/pkg/requestcontext"
)

// handleInvite handles POST /sessions/{sessionID}/invitations. The response
// pairs the invitation with a signed join token for the invitee.
func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[InviteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	inv, err := orch.Invite(ctx, req.InviterID, req.Email, req.Name, req.ParsedRole(), req.Message)
	if err != nil {
		h.logFailure(ctx, "invitation failed", err,
			"session_id", orch.ID(),
			"inviter_id", req.InviterID,
		)
		httputil.WriteError(w, err)
		return
	}

	token, err := h.tokens.Issue(ctx, orch.ID(), inv)
	if err != nil {
		h.logFailure(ctx, "join token issuance failed", err,
			"session_id", orch.ID(),
			"invitation_id", inv.ID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, InviteResponse{Invitation: inv, JoinToken: token})
}

// handleListInvitations handles GET /sessions/{sessionID}/invitations.
func (h *Handler) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, InvitationListResponse{Invitations: orch.Invitations(r.Context())})
}

// handleAcceptInvitation handles POST /sessions/{sessionID}/invitations/accept.
// The join token authenticates the invitee; its claims name the invitation.
func (h *Handler) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[AcceptInvitationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	claims, err := h.tokens.Verify(req.Token)
	if err != nil {
		h.logFailure(ctx, "join token rejected", err, "session_id", orch.ID())
		httputil.WriteError(w, err)
		return
	}
	if claims.SessionID != orch.ID() {
		err := dErrors.New(dErrors.CodeInvitationTokenInvalid, "join token was issued for a different session")
		h.logFailure(ctx, "join token rejected", err,
			"session_id", orch.ID(),
			"token_session_id", claims.SessionID,
		)
		httputil.WriteError(w, err)
		return
	}

	p, err := orch.AcceptInvitation(ctx, claims.InvitationID, req.ParticipantID)
	if err != nil {
		h.logFailure(ctx, "invitation acceptance failed", err,
			"session_id", orch.ID(),
			"invitation_id", claims.InvitationID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// handleRejectInvitation handles POST /sessions/{sessionID}/invitations/{invitationID}/reject.
func (h *Handler) handleRejectInvitation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}

	invitationID := chi.URLParam(r, "invitationID")
	inv, err := orch.RejectInvitation(ctx, invitationID)
	if err != nil {
		h.logFailure(ctx, "invitation rejection failed", err,
			"session_id", orch.ID(),
			"invitation_id", invitationID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inv)
}
