// Package protocol defines the interfaces and contracts for pluggable nodes
// and the engine's external collaborators.
package protocol

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
)

// Node is one executable node instance inside a flow graph.
type Node interface {
	// ID returns the node instance ID within its flow
	ID() string

	// Type returns the node type identifier
	Type() string

	// Execute performs the node's effect and returns what the executor should
	// do next. Execute must not mutate shared state directly; all writes go
	// through the returned StepResult.
	Execute(ctx context.Context, ec models.ExecutionContext) (*models.StepResult, error)
}

// NodeFactory creates node instances and provides metadata about the node type.
type NodeFactory interface {
	// Create creates a new node instance with the given configuration
	Create(ctx context.Context, id string, config map[string]any) (Node, error)

	// ID returns the unique identifier for this node type
	ID() string

	// Name returns the human-readable name for this node type
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema for configuring this node
	Schema() map[string]any
}
