// Package fault defines the shared sentinel errors used across the vault
// services. Callers should use errors.Is to match these values; HTTP status
// mapping lives in internal/httpapi.
package fault

import "errors"

var (
	// ErrUnauthenticated means no or invalid bearer credential.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the caller is authenticated but lacks privilege
	// over the target resource.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict covers immutability and edit-lock violations.
	ErrConflict = errors.New("conflict")

	ErrNotFound = errors.New("not found")

	// ErrIntegrity means an envelope failed to authenticate on decrypt or a
	// document hash did not match its recorded value.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrValidation covers malformed input and startup policy violations.
	ErrValidation = errors.New("validation error")

	// ErrInternal wraps storage/backend failures. No internal detail is
	// surfaced to callers.
	ErrInternal = errors.New("internal error")
)
