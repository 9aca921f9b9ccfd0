// Package market holds the error kinds, validation rules and invariant checks
// shared by the registry, matcher and settlement engine.
package market

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed or out-of-range create/update arguments.
	ErrInvalidInput = errors.New("market: invalid input")
	// ErrNotFound is returned when a referenced identifier does not resolve.
	ErrNotFound = errors.New("market: not found")
	// ErrNoMatch is returned by the matcher when no producer qualifies.
	ErrNoMatch = errors.New("market: no matching producer")
	// ErrInsufficientEnergy rejects a settlement the producer cannot supply.
	ErrInsufficientEnergy = errors.New("market: insufficient energy")
	// ErrInsufficientBudget rejects a settlement the consumer cannot pay for.
	ErrInsufficientBudget = errors.New("market: insufficient budget")
	// ErrInvariantViolation rejects an update that would break a record invariant.
	ErrInvariantViolation = errors.New("market: invariant violation")
)

// FieldError reports the offending field of an invalid request. It matches ErrInvalidInput.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("market: invalid %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) succeed.
func (e *FieldError) Unwrap() error {
	return ErrInvalidInput
}

// InvalidField builds a FieldError.
func InvalidField(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

// NotFound wraps ErrNotFound with the kind and id that failed to resolve.
func NotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

// IsBusinessRejection reports whether err is a rule rejection rather than a system fault.
func IsBusinessRejection(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNoMatch) ||
		errors.Is(err, ErrInsufficientEnergy) ||
		errors.Is(err, ErrInsufficientBudget) ||
		errors.Is(err, ErrInvariantViolation)
}
