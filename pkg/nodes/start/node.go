// Package start provides the flow entry node.
package start

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
)

// StartNode marks the entry point of a flow graph. It performs no work; the
// executor passes straight through it to the first real node.
type StartNode struct {
	id string
}

// NewStartNode creates a new start node.
func NewStartNode(id string, _ map[string]any) (*StartNode, error) {
	return &StartNode{id: id}, nil
}

// ID returns the node ID.
func (n *StartNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *StartNode) Type() string {
	return models.NodeTypeStart
}

// Execute advances to the next node.
func (n *StartNode) Execute(_ context.Context, _ models.ExecutionContext) (*models.StepResult, error) {
	return models.Continue(), nil
}
