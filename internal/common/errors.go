// Package common defines shared constants and sentinel errors used across
// client and server layers of dentdocs. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Validation errors.
	ErrorIncorrectMetadata = errors.New("incorrect metadata")
	ErrorValidation        = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrTimeout marks any network call that ran past its deadline.
	ErrTimeout = errors.New("timeout")
)
