package delay

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// DelayNodeFactory creates DelayNode instances.
type DelayNodeFactory struct{}

// NewDelayNodeFactory creates a new factory instance.
func NewDelayNodeFactory() protocol.NodeFactory {
	return &DelayNodeFactory{}
}

// Create creates a new DelayNode instance.
func (f *DelayNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewDelayNode(id, config)
}

// ID returns the factory ID.
func (f *DelayNodeFactory) ID() string {
	return models.NodeTypeDelay
}

// Name returns the factory name.
func (f *DelayNodeFactory) Name() string {
	return "Delay"
}

// Description returns the factory description.
func (f *DelayNodeFactory) Description() string {
	return "Pauses the flow for a fixed interval, resumed by the timer service"
}

// Schema returns the JSON schema for delay node configuration.
func (f *DelayNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"seconds": map[string]any{
				"type":             "number",
				"description":      "Wait duration in seconds",
				"exclusiveMinimum": 0,
				"examples":         []float64{30, 3600, 86400},
			},
		},
		"required": []string{"seconds"},
	}
}
