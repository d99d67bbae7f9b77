package random

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// RandomNodeFactory creates RandomNode instances.
type RandomNodeFactory struct{}

// NewRandomNodeFactory creates a new factory instance.
func NewRandomNodeFactory() protocol.NodeFactory {
	return &RandomNodeFactory{}
}

// Create creates a new RandomNode instance.
func (f *RandomNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewRandomNode(id, config)
}

// ID returns the factory ID.
func (f *RandomNodeFactory) ID() string {
	return models.NodeTypeRandom
}

// Name returns the factory name.
func (f *RandomNodeFactory) Name() string {
	return "Random"
}

// Description returns the factory description.
func (f *RandomNodeFactory) Description() string {
	return "Splits traffic across branches proportionally to the weights on the outgoing edges"
}

// Schema returns the JSON schema for random node configuration. The split is
// declared on the edges, not in the node config.
func (f *RandomNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}
