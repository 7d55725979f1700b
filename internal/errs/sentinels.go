// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Error kinds shared by repository, service and transport layers.
var (
	// ErrValidation indicates malformed or semantically invalid input.
	ErrValidation = errors.New("validation")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the actor lacks the required relationship to the entity.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict indicates the entity is not in the state required by the transition
	// (terminal offer, exchanged item, duplicate interest, lost conditional write).
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized indicates a missing or invalid caller identity.
	ErrUnauthorized = errors.New("unauthorized")
)
