package handoff

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// HandoffNodeFactory creates HandoffNode instances bound to a human queue.
type HandoffNodeFactory struct {
	humans protocol.HumanQueue
}

// NewHandoffNodeFactory creates a new factory instance.
func NewHandoffNodeFactory(humans protocol.HumanQueue) protocol.NodeFactory {
	return &HandoffNodeFactory{humans: humans}
}

// Create creates a new HandoffNode instance.
func (f *HandoffNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewHandoffNode(id, config, f.humans)
}

// ID returns the factory ID.
func (f *HandoffNodeFactory) ID() string {
	return models.NodeTypeHandoff
}

// Name returns the factory name.
func (f *HandoffNodeFactory) Name() string {
	return "Handoff"
}

// Description returns the factory description.
func (f *HandoffNodeFactory) Description() string {
	return "Transfers the conversation to a human agent queue and pauses the flow"
}

// Schema returns the JSON schema for handoff node configuration.
func (f *HandoffNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"queue": map[string]any{
				"type":        "string",
				"description": "Agent queue to route the conversation to",
			},
			"summary_variables": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Variables included in the context summary shown to the agent",
			},
		},
	}
}
