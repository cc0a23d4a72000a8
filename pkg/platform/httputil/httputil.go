// Package httputil provides shared HTTP response helpers for transport handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	dErrors "telesession/pkg/domain-errors"
)

// maxBodyBytes caps request bodies decoded by DecodeAndPrepare.
const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON error envelope returned by every endpoint.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Retryable        bool   `json:"retryable"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError translates a domain error into an HTTP status and the stable
// error envelope. Internal errors never leak their description to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)

	resp := ErrorResponse{
		Error:     strings.ToLower(string(code)),
		Retryable: dErrors.IsRetryable(err),
	}
	if code != dErrors.CodeInternal {
		var dErr *dErrors.Error
		if errors.As(err, &dErr) {
			resp.ErrorDescription = dErr.Message
		}
	}

	WriteJSON(w, StatusForCode(code), resp)
}

// StatusForCode maps a domain error code to its HTTP status.
func StatusForCode(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeInvitationTokenInvalid:
		return http.StatusBadRequest
	case dErrors.CodeInsufficientPermissions:
		return http.StatusForbidden
	case dErrors.CodeSessionNotFound, dErrors.CodeParticipantNotFound, dErrors.CodeInvitationNotFound:
		return http.StatusNotFound
	case dErrors.CodeParticipantExists, dErrors.CodeSessionExists, dErrors.CodeSessionFull,
		dErrors.CodeSessionEnded, dErrors.CodeInvalidSessionState,
		dErrors.CodeInvitationAlreadyProcessed, dErrors.CodeInvitationExpired,
		dErrors.CodeParticipantDisconnected, dErrors.CodeScreenShareActive,
		dErrors.CodeRecordingActive:
		return http.StatusConflict
	case dErrors.CodeMediaUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Validatable is implemented by request DTOs that validate and normalize
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the request body into T, runs its validation, and
// writes the error response itself on failure. Handlers use the second return
// value to bail out early:
//
//	req, ok := httputil.DecodeAndPrepare[JoinRequest](w, r, h.logger, ctx, requestID)
//	if !ok {
//		return
//	}
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	var req T

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return nil, false
	}

	prepared := PT(&req)
	if err := prepared.Validate(); err != nil {
		logger.WarnContext(ctx, "request validation failed",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}

	return prepared, true
}
