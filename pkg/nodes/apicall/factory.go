package apicall

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// APICallNodeFactory creates APICallNode instances bound to an HTTP executor.
type APICallNodeFactory struct {
	client protocol.HTTPExecutor
}

// NewAPICallNodeFactory creates a new factory instance.
func NewAPICallNodeFactory(client protocol.HTTPExecutor) protocol.NodeFactory {
	return &APICallNodeFactory{client: client}
}

// Create creates a new APICallNode instance.
func (f *APICallNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewAPICallNode(id, config, f.client)
}

// ID returns the factory ID.
func (f *APICallNodeFactory) ID() string {
	return models.NodeTypeAPICall
}

// Name returns the factory name.
func (f *APICallNodeFactory) Name() string {
	return "API Call"
}

// Description returns the factory description.
func (f *APICallNodeFactory) Description() string {
	return "Performs an HTTP request against an external system and binds the response"
}

// Schema returns the JSON schema for api_call node configuration.
func (f *APICallNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Request URL. Supports templating.",
				"examples":    []string{"https://api.example.com/orders/{{.variables.order_id}}"},
			},
			"method": map[string]any{
				"type":    "string",
				"enum":    []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
				"default": "GET",
			},
			"body": map[string]any{
				"type":        "object",
				"description": "Request body. String values support templating.",
			},
			"variable": map[string]any{
				"type":        "string",
				"description": "Optional variable name the response is bound to",
			},
		},
		"required": []string{"url"},
	}
}
