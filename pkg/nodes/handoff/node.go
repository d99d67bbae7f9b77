// Package handoff provides the human agent transfer node.
package handoff

import (
	"context"
	"fmt"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// HandoffNode enqueues the conversation for a human agent and suspends. The
// resume signal comes from the agent tooling, not from an inbound message;
// inbound messages received meanwhile stay with the human.
type HandoffNode struct {
	id        string
	queue     string
	variables []string
	humans    protocol.HumanQueue
}

// NewHandoffNode creates a new handoff node.
func NewHandoffNode(id string, config map[string]any, humans protocol.HumanQueue) (*HandoffNode, error) {
	node := &HandoffNode{id: id, humans: humans}

	if queue, ok := config["queue"].(string); ok {
		node.queue = queue
	}

	if raw, ok := config["summary_variables"].([]any); ok {
		for _, item := range raw {
			name, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field 'summary_variables' must contain only strings")
			}

			node.variables = append(node.variables, name)
		}
	}

	return node, nil
}

// ID returns the node ID.
func (n *HandoffNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *HandoffNode) Type() string {
	return models.NodeTypeHandoff
}

// Execute enqueues the handoff and suspends.
func (n *HandoffNode) Execute(ctx context.Context, ec models.ExecutionContext) (*models.StepResult, error) {
	summary := make(map[string]any, len(n.variables))

	for _, name := range n.variables {
		if value, ok := ec.Variable(name); ok {
			summary[name] = value
		}
	}

	err := n.humans.Enqueue(ctx, protocol.HandoffRequest{
		OrganizationID: ec.OrganizationID,
		ContactID:      ec.ContactID,
		Queue:          n.queue,
		ContextSummary: summary,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue handoff: %w", err)
	}

	return models.Suspend(), nil
}
