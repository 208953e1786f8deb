package errors

import "fmt"

// Rejection taxonomy for room commands. Every rejection is recoverable:
// the offending command is refused, the room state is left untouched and
// the session keeps processing the next event.
var (
	ErrForbidden       = fmt.Errorf("forbidden: owner-only action")
	ErrInvalidState    = fmt.Errorf("invalid state for this action")
	ErrConflict        = fmt.Errorf("conflicting vote already recorded")
	ErrNotFound        = fmt.Errorf("not found")
	ErrBackpressure    = fmt.Errorf("inbound queue saturated")
	ErrSessionClosed   = fmt.Errorf("room session terminated")
	ErrMalformed       = fmt.Errorf("malformed message")
	ErrInvalidEstimate = fmt.Errorf("estimate must not be negative")

	ErrWorkerPanic = fmt.Errorf("worker panic")

	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUsernameTaken      = fmt.Errorf("username already taken")
)
