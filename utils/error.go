package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError covers malformed or incomplete requests. Surfaced as 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError names the specific entity or linkage that is missing.
// An empty eligibility join is a hard stop, not a zero-item result.
type NotFoundError struct {
	Entity  string
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func NewNotFoundError(entity string, format string, args ...any) *NotFoundError {
	return &NotFoundError{Entity: entity, Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports an already-generated necessity for the same filter
// tuple so the caller can decide to overwrite explicitly.
type ConflictError struct {
	Message      string
	ExistingId   int
	ExistingCode string
}

func (e *ConflictError) Error() string { return e.Message }

func NewConflictError(existingId int, existingCode string) *ConflictError {
	return &ConflictError{
		Message:      fmt.Sprintf("a necessity was already generated for these parameters (code %s)", existingCode),
		ExistingId:   existingId,
		ExistingCode: existingCode,
	}
}
