// Package end provides the terminal node.
package end

import (
	"context"
	"fmt"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/template"
)

// EndNode terminates the execution and releases the conversation. An optional
// farewell text is sent before terminating.
type EndNode struct {
	id   string
	text string
}

// NewEndNode creates a new end node.
func NewEndNode(id string, config map[string]any) (*EndNode, error) {
	node := &EndNode{id: id}

	if text, ok := config["text"].(string); ok {
		node.text = text
	}

	return node, nil
}

// ID returns the node ID.
func (n *EndNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *EndNode) Type() string {
	return models.NodeTypeEnd
}

// Execute optionally sends the farewell and terminates.
func (n *EndNode) Execute(_ context.Context, ec models.ExecutionContext) (*models.StepResult, error) {
	result := models.Terminate()

	if n.text != "" {
		body, err := template.RenderString(n.text, &ec)
		if err != nil {
			return nil, fmt.Errorf("failed to render farewell text: %w", err)
		}

		result.Outbound = []*models.OutboundMessage{{Text: body}}
	}

	return result, nil
}
