// Package apperrors defines the error taxonomy shared by the storage,
// service and router layers. Callers should use errors.Is / errors.As
// to match these values.
package apperrors

import "errors"

var (
	// Storage-level errors.
	ErrUserNotFound    = errors.New("user not found")
	ErrAddressNotFound = errors.New("address not found for this user")

	// Constraint violations recognized from the database.
	ErrEmailExists      = errors.New("duplicate email")
	ErrInvalidReference = errors.New("invalid reference")
)

// Violation is a single field-level validation failure.
type Violation struct {
	Field   string
	Message string
}

// ValidationError carries the full ordered set of field violations
// produced while validating a request. The order follows the field
// declaration order of the validated schema.
type ValidationError struct {
	Violations []Violation
}

// Error returns the first violation's message so a ValidationError can be
// used where a single message is expected.
func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	return e.Violations[0].Message
}

// Fields groups the violations into a field → messages map, preserving
// per-field message order.
func (e *ValidationError) Fields() map[string][]string {
	result := make(map[string][]string, len(e.Violations))
	for _, v := range e.Violations {
		result[v.Field] = append(result[v.Field], v.Message)
	}
	return result
}

// NewValidationError builds a ValidationError from an ordered violation list.
func NewValidationError(violations ...Violation) *ValidationError {
	return &ValidationError{Violations: violations}
}
