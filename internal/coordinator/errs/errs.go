// Package errs collects the domain error kinds the coordinator returns by value. The HTTP edge
// is the only layer that maps these to status codes (internal/serve/httphandler).
package errs

import "errors"

var (
	// Input errors: 400, state unchanged.
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKiosk     = errors.New("invalid kiosk")
	ErrMalformedRequest = errors.New("malformed request")

	// State errors: 404/409, state unchanged.
	ErrNotFound             = errors.New("not found")
	ErrExpired              = errors.New("transaction expired")
	ErrAlreadyProcessed     = errors.New("transaction already processed")
	ErrNullifierReused      = errors.New("nullifier already used")
	ErrJobOwnershipMismatch = errors.New("job is not owned by this kiosk")
	ErrJobNotInProgress     = errors.New("job is not in progress")

	// Authorization errors: 400, state unchanged.
	ErrVerificationRejected = errors.New("verification rejected")

	// Transient infrastructure errors: 503, state unchanged.
	ErrDatabaseUnavailable = errors.New("database unavailable")
	ErrVerifierUnavailable = errors.New("verifier unavailable")
)
