package message

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// MessageNodeFactory creates MessageNode instances.
type MessageNodeFactory struct{}

// NewMessageNodeFactory creates a new factory instance.
func NewMessageNodeFactory() protocol.NodeFactory {
	return &MessageNodeFactory{}
}

// Create creates a new MessageNode instance.
func (f *MessageNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewMessageNode(id, config)
}

// ID returns the factory ID.
func (f *MessageNodeFactory) ID() string {
	return models.NodeTypeMessage
}

// Name returns the factory name.
func (f *MessageNodeFactory) Name() string {
	return "Message"
}

// Description returns the factory description.
func (f *MessageNodeFactory) Description() string {
	return "Sends a free-form text message rendered against the conversation variables"
}

// Schema returns the JSON schema for message node configuration.
func (f *MessageNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "Message body. Supports templating with conversation variables.",
				"examples": []string{
					"Hello {{.variables.name}}, welcome back!",
					"Your order {{.variables.order_id}} has shipped.",
				},
			},
		},
		"required": []string{"text"},
	}
}
