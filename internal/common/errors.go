// Package common contains shared sentinel errors and small helpers used
// across the backend. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Generic internal failure (collaborator errors, lost connectivity).
	// Never coerced into one of the user-facing kinds below.
	ErrorInternal = errors.New("internal error")

	// Auth errors. Each is a distinct, user-facing, non-retryable condition.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("inactive user")
	ErrUserNotFound       = errors.New("user not found")
	ErrTenantNotFound     = errors.New("tenant not found or inactive")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrPasswordMismatch   = errors.New("password mismatch")
)
