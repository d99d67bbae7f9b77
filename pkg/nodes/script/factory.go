package script

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// ScriptNodeFactory creates ScriptNode instances bound to a script runner.
type ScriptNodeFactory struct {
	runner protocol.ScriptRunner
}

// NewScriptNodeFactory creates a new factory instance.
func NewScriptNodeFactory(runner protocol.ScriptRunner) protocol.NodeFactory {
	return &ScriptNodeFactory{runner: runner}
}

// Create creates a new ScriptNode instance.
func (f *ScriptNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewScriptNode(id, config, f.runner)
}

// ID returns the factory ID.
func (f *ScriptNodeFactory) ID() string {
	return models.NodeTypeScript
}

// Name returns the factory name.
func (f *ScriptNodeFactory) Name() string {
	return "Script"
}

// Description returns the factory description.
func (f *ScriptNodeFactory) Description() string {
	return "Evaluates an expression against the conversation variables and binds the result"
}

// Schema returns the JSON schema for script node configuration.
func (f *ScriptNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source": map[string]any{
				"type":        "string",
				"description": "Expression source evaluated with the conversation variables in scope",
				"examples":    []string{"age >= 18", "order_total * 0.9"},
			},
			"variable": map[string]any{
				"type":        "string",
				"description": "Optional variable name the result is bound to",
			},
		},
		"required": []string{"source"},
	}
}
