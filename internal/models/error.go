package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	// Authentication decision errors
	ErrBlocked            = errors.New("source address is blocked")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrValidation         = errors.New("validation failed")

	// ErrDependencyUnavailable wraps failures of the TTL store or the durable ledgers.
	// It must never be reported as a business denial.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
