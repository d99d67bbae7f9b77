package end

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// EndNodeFactory creates EndNode instances.
type EndNodeFactory struct{}

// NewEndNodeFactory creates a new factory instance.
func NewEndNodeFactory() protocol.NodeFactory {
	return &EndNodeFactory{}
}

// Create creates a new EndNode instance.
func (f *EndNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewEndNode(id, config)
}

// ID returns the factory ID.
func (f *EndNodeFactory) ID() string {
	return models.NodeTypeEnd
}

// Name returns the factory name.
func (f *EndNodeFactory) Name() string {
	return "End"
}

// Description returns the factory description.
func (f *EndNodeFactory) Description() string {
	return "Ends the flow and releases the conversation, optionally sending a farewell message"
}

// Schema returns the JSON schema for end node configuration.
func (f *EndNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "Optional farewell message sent before the flow ends",
			},
		},
	}
}
