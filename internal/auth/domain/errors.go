package domain

import "errors"

// Outward error taxonomy. Internal causes (signature failure vs expiry vs
// store error) are logged with detail but surfaced only through these coarse
// values so responses never reveal which check failed.
var (
	// ErrInvalidCredentials covers both "no such account" and "wrong
	// password". Login paths must return this exact value for either case.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrInvalidToken covers malformed, expired, wrong-audience and
	// unknown-subject bearer or refresh tokens.
	ErrInvalidToken = errors.New("invalid_token")

	// ErrInactiveUser is returned by the active-account gate.
	ErrInactiveUser = errors.New("inactive_user")

	// ErrTooManyAttempts is the login-throttle lockout.
	ErrTooManyAttempts = errors.New("too_many_attempts")
)
