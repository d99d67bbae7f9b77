package buttons

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// ButtonsNodeFactory creates ButtonsNode instances.
type ButtonsNodeFactory struct{}

// NewButtonsNodeFactory creates a new factory instance.
func NewButtonsNodeFactory() protocol.NodeFactory {
	return &ButtonsNodeFactory{}
}

// Create creates a new ButtonsNode instance.
func (f *ButtonsNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewButtonsNode(id, config)
}

// ID returns the factory ID.
func (f *ButtonsNodeFactory) ID() string {
	return models.NodeTypeInteractiveButtons
}

// Name returns the factory name.
func (f *ButtonsNodeFactory) Name() string {
	return "Interactive Buttons"
}

// Description returns the factory description.
func (f *ButtonsNodeFactory) Description() string {
	return "Offers up to three reply buttons and branches on the tapped option"
}

// Schema returns the JSON schema for interactive_buttons node configuration.
func (f *ButtonsNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "Message body shown above the buttons. Supports templating.",
			},
			"buttons": map[string]any{
				"type":     "array",
				"maxItems": maxButtons,
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":    map[string]any{"type": "string"},
						"title": map[string]any{"type": "string"},
					},
					"required": []string{"id", "title"},
				},
			},
			"variable": map[string]any{
				"type":        "string",
				"description": "Optional variable name the tapped option ID is bound to",
			},
		},
		"required": []string{"text", "buttons"},
	}
}
