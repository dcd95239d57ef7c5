// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyExists indicates a unique constraint violation (handle taken).
	ErrAlreadyExists = errors.New("handle already in use")

	// ErrValidation indicates malformed input rejected before any side effect.
	ErrValidation = errors.New("validation")

	// ErrInvalidPassword indicates oldAuthKey does not match the stored authKey.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrIncompleteRotation indicates a mutation carrying 1-3 of the 4 credential fields.
	ErrIncompleteRotation = errors.New("invalid data for setting password")
)

// UserVisible reports whether err belongs to the client-facing 4xx set.
func UserVisible(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrInvalidPassword) ||
		errors.Is(err, ErrIncompleteRotation)
}
