// Package persistence provides standardized error types for persistence
// operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrFlowNotFound indicates a flow was not found by the given identifier.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrFlowVersionNotFound indicates the pinned version of a flow does not
	// exist.
	ErrFlowVersionNotFound = errors.New("flow version not found")

	// ErrConversationNotFound indicates no state exists yet for the
	// (organization, contact) pair.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrFlowImmutable indicates an attempt to modify a published flow version.
	ErrFlowImmutable = errors.New("published flow version is immutable")
)

// FlowError wraps flow-related persistence errors with operation context.
type FlowError struct {
	Op      string // Operation being performed (e.g., "FlowByID", "SaveFlow")
	FlowID  string
	Version int
	Err     error
}

func (e *FlowError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("%s failed for flow %s v%d: %v", e.Op, e.FlowID, e.Version, e.Err)
	}

	return fmt.Sprintf("%s failed for flow %s: %v", e.Op, e.FlowID, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func (e *FlowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewFlowError creates a new flow error with context.
func NewFlowError(op, flowID string, err error) *FlowError {
	return &FlowError{Op: op, FlowID: flowID, Err: err}
}

// ConversationError wraps conversation-related persistence errors.
type ConversationError struct {
	Op             string
	OrganizationID string
	ContactID      string
	Err            error
}

func (e *ConversationError) Error() string {
	return fmt.Sprintf("%s failed for conversation %s:%s: %v", e.Op, e.OrganizationID, e.ContactID, e.Err)
}

func (e *ConversationError) Unwrap() error {
	return e.Err
}

func (e *ConversationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewConversationError creates a new conversation error with context.
func NewConversationError(op, organizationID, contactID string, err error) *ConversationError {
	return &ConversationError{Op: op, OrganizationID: organizationID, ContactID: contactID, Err: err}
}

// IsFlowNotFound checks if an error indicates a flow was not found.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound) || errors.Is(err, ErrFlowVersionNotFound)
}

// IsConversationNotFound checks if an error indicates missing conversation
// state.
func IsConversationNotFound(err error) bool {
	return errors.Is(err, ErrConversationNotFound)
}
