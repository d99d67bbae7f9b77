package models

import "time"

// ExecutionContext is the read view handed to a node execution. It carries
// everything a node may inspect; all mutation flows back through the
// StepResult so the executor stays the single writer.
type ExecutionContext struct {
	OrganizationID string         `json:"organization_id"`
	ContactID      string         `json:"contact_id"`
	FlowID         string         `json:"flow_id"`
	FlowVersion    int            `json:"flow_version"`
	Generation     int64          `json:"generation"`
	Variables      map[string]any `json:"variables,omitempty"`

	// Step is the 1-based ordinal of this node execution within the current
	// cycle. A replayed cycle reproduces the same ordinals, while a graph
	// cycle revisiting a node within one run gets a fresh one.
	Step int `json:"step"`

	// Reply is the inbound message being treated as the answer to a suspended
	// node. Nil on first entry into a node.
	Reply *InboundMessage `json:"reply,omitempty"`

	// PromptAttempts counts invalid answers already given to the suspended
	// question node.
	PromptAttempts int `json:"prompt_attempts,omitempty"`

	// Branches lists the labels of the current node's outgoing edges, so a
	// node can tell whether an optional branch (on_invalid, on_fault) is
	// declared.
	Branches []string `json:"branches,omitempty"`

	// BranchWeights maps outgoing edge labels to their declared weights.
	// Consumed by random nodes.
	BranchWeights map[string]float64 `json:"branch_weights,omitempty"`

	// Verdict is the window guard verdict for this inbound cycle.
	Verdict WindowVerdict `json:"window_verdict"`

	Now time.Time `json:"now"`
}

// Variable returns a bound variable and whether it exists.
func (ec *ExecutionContext) Variable(name string) (any, bool) {
	if ec.Variables == nil {
		return nil, false
	}

	value, ok := ec.Variables[name]

	return value, ok
}

// HasBranch reports whether the current node declares an outgoing edge with
// the given label.
func (ec *ExecutionContext) HasBranch(label string) bool {
	for _, branch := range ec.Branches {
		if branch == label {
			return true
		}
	}

	return false
}
