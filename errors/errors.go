package errors

import (
	"errors"
	"fmt"
)

// Error kinds shared by the resolution pipeline and its collaborators.
// Each kind has a fixed recovery policy; none of them may escape a message handler.

var (
	// ErrValidation indicates malformed expression input. Recovered with an apology.
	ErrValidation = errors.New("validation failed")

	// ErrLookup indicates an external knowledge source timed out or failed. Treated as absence.
	ErrLookup = errors.New("external lookup failed")

	// ErrPersistence indicates a durable store write failed. The triggering mutation is not applied.
	ErrPersistence = errors.New("persistence failed")

	// ErrState indicates input that does not fit the session state, e.g. feedback with nothing pending.
	ErrState = errors.New("unexpected session state")

	// ErrInvalidInput indicates invalid caller input
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a requested resource was not found
	ErrNotFound = errors.New("resource not found")
)

// WrapError wraps an error with context message
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsValidation checks if error is an expression validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsLookup checks if error is an external lookup error
func IsLookup(err error) bool {
	return errors.Is(err, ErrLookup)
}

// IsPersistence checks if error is a persistence error
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsState checks if error is a session state error
func IsState(err error) bool {
	return errors.Is(err, ErrState)
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput checks if error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
