// Package apperror defines the error taxonomy shared by services and handlers.
// Handlers map each type to an HTTP status with errors.As.
package apperror

import (
	"fmt"
	"strings"
)

// Conflict codes.
const (
	CodeAlreadyProcessed   = "ALREADY_PROCESSED"
	CodeSpaceExhausted     = "CODE_SPACE_EXHAUSTED"
	CodeDuplicateCompany   = "DUPLICATE_COMPANY"
	CodeDuplicateUserEmail = "DUPLICATE_EMAIL"
)

// ValidationError rejects input before anything is persisted.
type ValidationError struct {
	Message string
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, "; ")
}

func Validation(message string, details ...string) *ValidationError {
	return &ValidationError{Message: message, Details: details}
}

// LocationRequiredError is returned by Verify when coordinates are missing.
type LocationRequiredError struct{}

func (e *LocationRequiredError) Error() string {
	return "location is required for verification"
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError leaves the target unchanged; Code is machine readable.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

func Conflict(code, message string) *ConflictError {
	return &ConflictError{Code: code, Message: message}
}

type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	return "forbidden: " + e.Message
}

func Forbidden(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}
