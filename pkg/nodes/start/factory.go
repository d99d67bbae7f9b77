package start

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// StartNodeFactory creates StartNode instances.
type StartNodeFactory struct{}

// NewStartNodeFactory creates a new factory instance.
func NewStartNodeFactory() protocol.NodeFactory {
	return &StartNodeFactory{}
}

// Create creates a new StartNode instance.
func (f *StartNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewStartNode(id, config)
}

// ID returns the factory ID.
func (f *StartNodeFactory) ID() string {
	return models.NodeTypeStart
}

// Name returns the factory name.
func (f *StartNodeFactory) Name() string {
	return "Start"
}

// Description returns the factory description.
func (f *StartNodeFactory) Description() string {
	return "Entry point of a flow. Every published flow has exactly one start node."
}

// Schema returns the JSON schema for start node configuration.
func (f *StartNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}
