package jump

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// JumpNodeFactory creates JumpNode instances.
type JumpNodeFactory struct{}

// NewJumpNodeFactory creates a new factory instance.
func NewJumpNodeFactory() protocol.NodeFactory {
	return &JumpNodeFactory{}
}

// Create creates a new JumpNode instance.
func (f *JumpNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewJumpNode(id, config)
}

// ID returns the factory ID.
func (f *JumpNodeFactory) ID() string {
	return models.NodeTypeJump
}

// Name returns the factory name.
func (f *JumpNodeFactory) Name() string {
	return "Jump"
}

// Description returns the factory description.
func (f *JumpNodeFactory) Description() string {
	return "Transfers the conversation to another flow, keeping the bound variables"
}

// Schema returns the JSON schema for jump node configuration.
func (f *JumpNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"flow_id": map[string]any{
				"type":        "string",
				"description": "Target flow ID. Its current published version is used.",
			},
			"node_id": map[string]any{
				"type":        "string",
				"description": "Optional entry node in the target flow. Defaults to its start node.",
			},
		},
		"required": []string{"flow_id"},
	}
}
