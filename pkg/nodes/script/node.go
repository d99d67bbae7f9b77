// Package script provides the expression evaluation node.
package script

import (
	"context"
	"errors"
	"fmt"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// ScriptNode evaluates an expression against the bound variables and binds
// the result. Evaluation is delegated to the script runner collaborator.
type ScriptNode struct {
	id       string
	source   string
	variable string
	runner   protocol.ScriptRunner
}

// NewScriptNode creates a new script node.
func NewScriptNode(id string, config map[string]any, runner protocol.ScriptRunner) (*ScriptNode, error) {
	source, ok := config["source"].(string)
	if !ok || source == "" {
		return nil, errors.New("missing required field 'source'")
	}

	node := &ScriptNode{id: id, source: source, runner: runner}

	if variable, ok := config["variable"].(string); ok {
		node.variable = variable
	}

	return node, nil
}

// ID returns the node ID.
func (n *ScriptNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *ScriptNode) Type() string {
	return models.NodeTypeScript
}

// Execute runs the expression and binds its result.
func (n *ScriptNode) Execute(ctx context.Context, ec models.ExecutionContext) (*models.StepResult, error) {
	value, err := n.runner.Run(ctx, n.source, ec.Variables)
	if err != nil {
		return nil, fmt.Errorf("script evaluation failed: %w", err)
	}

	result := models.Continue()

	if n.variable != "" {
		result.Bindings = map[string]any{n.variable: value}
	}

	return result, nil
}
