// Package services implements the application services: inbound message
// processing, flow lifecycle management and publishing.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrFlowNameRequired = errors.New("flow name is required")
	ErrNodesRequired    = errors.New("flow must have at least one node")
	ErrFlowNil          = errors.New("flow cannot be nil")

	// Conflicts (409).
	ErrCannotModifyPublished = errors.New("cannot modify published flow version")
	ErrNotPublished          = errors.New("flow is not published")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new service error.
func NewServiceError(op, code, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Err: err}
}
