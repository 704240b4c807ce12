package auth

import "errors"

// Common authentication errors.
var (
	// ErrUnauthorized is returned when authentication is required but not provided.
	ErrUnauthorized = errors.New("unauthorized: authentication required")

	// ErrInvalidToken is returned when a token cannot be validated.
	ErrInvalidToken = errors.New("invalid token")

	// ErrForbidden is returned when the caller lacks permission.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrCredential is returned when an outbound token cannot be acquired.
	// Callers treat it as an auth failure rather than a transport failure.
	ErrCredential = errors.New("credential acquisition failed")
)
