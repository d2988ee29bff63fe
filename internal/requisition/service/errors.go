package service

import (
	"github.com/bitfantasy/requisition/internal/requisition/repository"
	"github.com/bitfantasy/requisition/internal/requisition/workflow"
)

// Error taxonomy surfaced to callers. Match with errors.Is / errors.As.
var (
	ErrNotFound   = repository.ErrNotFound
	ErrConflict   = repository.ErrConflict
	ErrValidation = workflow.ErrValidation
	ErrForbidden  = workflow.ErrForbidden
)

type (
	ValidationError    = workflow.ValidationError
	AuthorizationError = workflow.AuthorizationError
)

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func forbidden(reason string) error {
	return &AuthorizationError{Reason: reason}
}
