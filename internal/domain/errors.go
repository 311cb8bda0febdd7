package domain

import "fmt"

// Error types for consistent error handling across selfservice.

// ErrNotFound indicates a resource was not found, or that access to it is
// forbidden by a business rule. Both render as 404.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUpstream indicates a backend failure: 5xx, transport error, timeout or an
// open circuit breaker.
type ErrUpstream struct {
	Backend string
	Status  int
	Timeout bool
	Err     error
}

func (e *ErrUpstream) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("backend [%s] timed out: %v", e.Backend, e.Err)
	case e.Status > 0:
		return fmt.Sprintf("backend [%s] returned status %d", e.Backend, e.Status)
	default:
		return fmt.Sprintf("backend [%s] failed: %v", e.Backend, e.Err)
	}
}

func (e *ErrUpstream) Unwrap() error {
	return e.Err
}

// ErrBackendClient indicates a backend rejected the request with a 4xx other
// than 404. Identifier carries the backend error code when one was returned.
type ErrBackendClient struct {
	Backend    string
	Status     int
	Identifier string
	Message    string
}

func (e *ErrBackendClient) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("backend [%s] rejected request (%d %s): %s", e.Backend, e.Status, e.Identifier, e.Message)
	}
	return fmt.Sprintf("backend [%s] rejected request (%d): %s", e.Backend, e.Status, e.Message)
}

// ErrValidation indicates a validation error on a single field.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrTaskAlreadyCompleted is raised when an onboarding task page is requested
// after the task was completed.
type ErrTaskAlreadyCompleted struct {
	Task string
}

func (e *ErrTaskAlreadyCompleted) Error() string {
	return fmt.Sprintf("task already completed: %s", e.Task)
}

// ErrTaskOutOfSequence is raised when an onboarding task page is requested
// before its prerequisites are completed.
type ErrTaskOutOfSequence struct {
	Task    string
	Missing []string
}

func (e *ErrTaskOutOfSequence) Error() string {
	return fmt.Sprintf("task accessed out of sequence: %s (missing %v)", e.Task, e.Missing)
}

// ErrUnauthorized indicates there is no authenticated user or the credentials
// were rejected.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrForbidden indicates the user lacks a permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrCSRF indicates a state-changing request without a valid CSRF token.
type ErrCSRF struct{}

func (e *ErrCSRF) Error() string {
	return "invalid csrf token"
}

// ErrPayloadTooLarge indicates a request body over the allowed size.
type ErrPayloadTooLarge struct {
	Limit int64
}

func (e *ErrPayloadTooLarge) Error() string {
	return fmt.Sprintf("request body exceeds %d bytes", e.Limit)
}
