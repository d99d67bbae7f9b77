package listmenu

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// ListMenuNodeFactory creates ListMenuNode instances.
type ListMenuNodeFactory struct{}

// NewListMenuNodeFactory creates a new factory instance.
func NewListMenuNodeFactory() protocol.NodeFactory {
	return &ListMenuNodeFactory{}
}

// Create creates a new ListMenuNode instance.
func (f *ListMenuNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewListMenuNode(id, config)
}

// ID returns the factory ID.
func (f *ListMenuNodeFactory) ID() string {
	return models.NodeTypeInteractiveList
}

// Name returns the factory name.
func (f *ListMenuNodeFactory) Name() string {
	return "Interactive List"
}

// Description returns the factory description.
func (f *ListMenuNodeFactory) Description() string {
	return "Offers a list menu of up to ten rows and branches on the picked row"
}

// Schema returns the JSON schema for interactive_list node configuration.
func (f *ListMenuNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "Message body shown above the menu. Supports templating.",
			},
			"button": map[string]any{
				"type":        "string",
				"description": "Label of the button that opens the list",
				"default":     "Options",
			},
			"rows": map[string]any{
				"type":     "array",
				"maxItems": maxRows,
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":          map[string]any{"type": "string"},
						"title":       map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
					},
					"required": []string{"id", "title"},
				},
			},
			"variable": map[string]any{
				"type":        "string",
				"description": "Optional variable name the picked row ID is bound to",
			},
		},
		"required": []string{"text", "rows"},
	}
}
