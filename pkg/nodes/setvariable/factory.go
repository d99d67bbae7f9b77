package setvariable

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// SetVariableNodeFactory creates SetVariableNode instances.
type SetVariableNodeFactory struct{}

// NewSetVariableNodeFactory creates a new factory instance.
func NewSetVariableNodeFactory() protocol.NodeFactory {
	return &SetVariableNodeFactory{}
}

// Create creates a new SetVariableNode instance.
func (f *SetVariableNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewSetVariableNode(id, config)
}

// ID returns the factory ID.
func (f *SetVariableNodeFactory) ID() string {
	return models.NodeTypeSetVariable
}

// Name returns the factory name.
func (f *SetVariableNodeFactory) Name() string {
	return "Set Variable"
}

// Description returns the factory description.
func (f *SetVariableNodeFactory) Description() string {
	return "Binds a value into the conversation variables, with template support for derived values"
}

// Schema returns the JSON schema for set_variable node configuration.
func (f *SetVariableNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"variable": map[string]any{
				"type":        "string",
				"description": "Variable name to bind",
			},
			"value": map[string]any{
				"description": "Value to bind. Strings are rendered as templates.",
				"examples":    []any{"{{.variables.first_name}} {{.variables.last_name}}", 42, true},
			},
		},
		"required": []string{"variable", "value"},
	}
}
