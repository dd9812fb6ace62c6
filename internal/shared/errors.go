package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive indicates the account has been deactivated.
	ErrAccountInactive = errors.New("account inactive")
	// ErrEmailTaken indicates the email address is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrTokenInvalid indicates an expired or already used token.
	ErrTokenInvalid = errors.New("token invalid or expired")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
