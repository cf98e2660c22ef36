package domain

import (
	"errors"
	"fmt"
)

var ErrListingNotFound = errors.New("listing not found")

// ValidationError reports a missing or invalid field on an incoming request.
// It is detected before any outbound call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// InsufficientDataError means training was requested with fewer eligible
// listings than the model needs.
type InsufficientDataError struct {
	Required int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient training data: need %d eligible listings, have %d", e.Required, e.Got)
}

func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}

// ServiceUnavailableError means the remote scoring/pricing service kept
// failing until the retry budget ran out. Attempts counts every attempt made.
type ServiceUnavailableError struct {
	Attempts int
	Last     error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("service unavailable after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Last }

func IsServiceUnavailable(err error) bool {
	var target *ServiceUnavailableError
	return errors.As(err, &target)
}

// InvalidResponseError means the remote service answered with a well-formed
// HTTP response whose payload does not match the expected shape.
type InvalidResponseError struct {
	Detail string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid service response: %s", e.Detail)
}

func IsInvalidResponse(err error) bool {
	var target *InvalidResponseError
	return errors.As(err, &target)
}
