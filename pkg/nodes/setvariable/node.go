// Package setvariable provides the variable assignment node.
package setvariable

import (
	"context"
	"errors"
	"fmt"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/template"
)

// SetVariableNode binds one value into the conversation variables. String
// values are rendered as templates, so assignments can derive from existing
// bindings.
type SetVariableNode struct {
	id       string
	variable string
	value    any
}

// NewSetVariableNode creates a new set_variable node.
func NewSetVariableNode(id string, config map[string]any) (*SetVariableNode, error) {
	variable, ok := config["variable"].(string)
	if !ok || variable == "" {
		return nil, errors.New("missing required field 'variable'")
	}

	value, ok := config["value"]
	if !ok {
		return nil, errors.New("missing required field 'value'")
	}

	return &SetVariableNode{id: id, variable: variable, value: value}, nil
}

// ID returns the node ID.
func (n *SetVariableNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *SetVariableNode) Type() string {
	return models.NodeTypeSetVariable
}

// Execute renders and binds the value.
func (n *SetVariableNode) Execute(_ context.Context, ec models.ExecutionContext) (*models.StepResult, error) {
	value := n.value

	if text, ok := n.value.(string); ok {
		rendered, err := template.RenderWithContext(text, &ec)
		if err != nil {
			return nil, fmt.Errorf("failed to render value for %q: %w", n.variable, err)
		}

		value = rendered
	}

	result := models.Continue()
	result.Bindings = map[string]any{n.variable: value}

	return result, nil
}
