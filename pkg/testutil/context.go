package testutil

import (
	"net/http"
	"time"

	"telesession/pkg/requestcontext"
)

// WithRequestID adds a request ID to the request context, simulating what the
// request ID middleware would do.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	return req.WithContext(ctx)
}

// WithClientMetadata adds client IP and User-Agent to the request context,
// simulating the client metadata middleware.
func WithClientMetadata(req *http.Request, clientIP, userAgent string) *http.Request {
	ctx := requestcontext.WithClientMetadata(req.Context(), clientIP, userAgent)
	return req.WithContext(ctx)
}

// WithFixedTime pins the request-scoped clock so handlers stamp a known time.
func WithFixedTime(req *http.Request, t time.Time) *http.Request {
	ctx := requestcontext.WithTime(req.Context(), t)
	return req.WithContext(ctx)
}
