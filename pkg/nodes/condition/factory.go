package condition

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// ConditionNodeFactory creates ConditionNode instances.
type ConditionNodeFactory struct{}

// NewConditionNodeFactory creates a new factory instance.
func NewConditionNodeFactory() protocol.NodeFactory {
	return &ConditionNodeFactory{}
}

// Create creates a new ConditionNode instance.
func (f *ConditionNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewConditionNode(id, config)
}

// ID returns the factory ID.
func (f *ConditionNodeFactory) ID() string {
	return models.NodeTypeCondition
}

// Name returns the factory name.
func (f *ConditionNodeFactory) Name() string {
	return "Condition"
}

// Description returns the factory description.
func (f *ConditionNodeFactory) Description() string {
	return "Branches on typed predicates evaluated against the conversation variables, first match wins"
}

// Schema returns the JSON schema for condition node configuration.
func (f *ConditionNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"predicates": map[string]any{
				"type":        "array",
				"description": "Ordered predicate list. Each selects a labeled edge on match.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"variable": map[string]any{"type": "string"},
						"operator": map[string]any{
							"type": "string",
							"enum": []string{"eq", "neq", "gt", "gte", "lt", "lte", "contains"},
						},
						"value":  map[string]any{"type": "string"},
						"type":   map[string]any{"type": "string", "enum": []string{"string", "number"}},
						"branch": map[string]any{"type": "string"},
					},
					"required": []string{"variable", "operator", "value", "branch"},
				},
				"minItems": 1,
			},
		},
		"required": []string{"predicates"},
	}
}
