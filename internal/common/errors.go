// Package common defines shared constants and sentinel errors used across
// tiergate layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Auth errors (invalid, malformed, expired or revoked token).
	ErrInvalidToken = errors.New("invalid token")

	ErrorInvalidLoginPassword = errors.New("invalid email or password")
)
