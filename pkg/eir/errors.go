package eir

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when loan data fails validation before
	// solving.
	ErrInvalidInput = errors.New("invalid loan data")

	// ErrInsufficientData is returned when a loan carries neither a schedule
	// nor summary terms.
	ErrInsufficientData = errors.New("insufficient cash flow data")

	// ErrIllegalTransition is returned for a status change the lifecycle does
	// not allow.
	ErrIllegalTransition = errors.New("illegal status transition")
)

// InvalidInputError names the offending field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, reason string, args ...any) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(reason, args...)}
}
