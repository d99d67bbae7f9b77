// Package flow implements flow graph compilation, validation, trigger
// resolution and execution.
package flow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStepBudgetExceeded indicates a single inbound-message cycle ran more
	// node steps than the budget allows, usually a cyclic graph with no
	// reachable end.
	ErrStepBudgetExceeded = errors.New("step budget exceeded")

	// ErrStaleGeneration indicates a resume signal targets an execution
	// generation the conversation has moved past. Logged and dropped, never
	// surfaced to the contact.
	ErrStaleGeneration = errors.New("stale execution generation")

	// ErrNoStartNode indicates a graph without a start node.
	ErrNoStartNode = errors.New("flow has no start node")
)

// ValidationError collects the publish-time problems of a flow definition.
// A flow with validation errors cannot be published, so these never surface
// at runtime.
type ValidationError struct {
	FlowID string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("flow %s failed validation: %s", e.FlowID, strings.Join(e.Issues, "; "))
}

// NodeFault is a runtime node execution failure: an external call failed, a
// condition matched nothing with no default edge, or the step budget ran
// out. The conversation suspends with a fault marker; the engine never
// silently retries.
type NodeFault struct {
	FlowID string
	NodeID string
	Err    error
}

func (e *NodeFault) Error() string {
	return fmt.Sprintf("node %s in flow %s faulted: %v", e.NodeID, e.FlowID, e.Err)
}

func (e *NodeFault) Unwrap() error {
	return e.Err
}

// OutboundBlockedError reports a free-form send refused by the window guard
// with no template fallback configured. The message stays queued in the
// conversation state for manual resolution; it is never dropped.
type OutboundBlockedError struct {
	OrganizationID string
	ContactID      string
	NodeID         string
}

func (e *OutboundBlockedError) Error() string {
	return fmt.Sprintf(
		"outbound send blocked for %s:%s at node %s: 24h window closed and no template fallback",
		e.OrganizationID, e.ContactID, e.NodeID)
}

// IsOutboundBlocked checks whether err is an OutboundBlockedError.
func IsOutboundBlocked(err error) bool {
	var blocked *OutboundBlockedError

	return errors.As(err, &blocked)
}

// IsNodeFault checks whether err is a NodeFault.
func IsNodeFault(err error) bool {
	var fault *NodeFault

	return errors.As(err, &fault)
}

// IsValidationError checks whether err is a flow ValidationError.
func IsValidationError(err error) bool {
	var validation *ValidationError

	return errors.As(err, &validation)
}
