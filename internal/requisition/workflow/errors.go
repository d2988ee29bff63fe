package workflow

import "errors"

var (
	// ErrValidation marks input the caller can correct and resubmit.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden marks an actor acting outside their queue.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError describes malformed or missing input. No state is mutated
// when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AuthorizationError carries the reason an actor may not act on a request.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return e.Reason
}

func (e *AuthorizationError) Is(target error) bool {
	return target == ErrForbidden
}

func deny(reason string) *AuthorizationError {
	return &AuthorizationError{Reason: reason}
}
