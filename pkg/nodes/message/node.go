// Package message provides the free-form text send node.
package message

import (
	"context"
	"errors"
	"fmt"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/template"
)

// MessageNode renders a text body against the conversation variables and
// requests one outbound send. Whether the send is actually allowed is the
// executor's window gating decision, not this node's.
type MessageNode struct {
	id   string
	text string
}

// NewMessageNode creates a new message node.
func NewMessageNode(id string, config map[string]any) (*MessageNode, error) {
	text, ok := config["text"].(string)
	if !ok || text == "" {
		return nil, errors.New("missing required field 'text'")
	}

	return &MessageNode{id: id, text: text}, nil
}

// ID returns the node ID.
func (n *MessageNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *MessageNode) Type() string {
	return models.NodeTypeMessage
}

// Execute renders the body and emits the send request.
func (n *MessageNode) Execute(_ context.Context, ec models.ExecutionContext) (*models.StepResult, error) {
	body, err := template.RenderString(n.text, &ec)
	if err != nil {
		return nil, fmt.Errorf("failed to render message text: %w", err)
	}

	result := models.Continue()
	result.Outbound = []*models.OutboundMessage{{Text: body}}

	return result, nil
}
