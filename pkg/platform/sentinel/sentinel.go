package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Media controllers and other
// backend boundaries return these (optionally wrapped) so services can
// translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrConflict: resource already held by someone else
// - ErrInvalidState: resource in wrong state for requested operation
// - ErrUnavailable: backend or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
