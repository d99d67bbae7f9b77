package watemplate

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// TemplateNodeFactory creates TemplateNode instances.
type TemplateNodeFactory struct{}

// NewTemplateNodeFactory creates a new factory instance.
func NewTemplateNodeFactory() protocol.NodeFactory {
	return &TemplateNodeFactory{}
}

// Create creates a new TemplateNode instance.
func (f *TemplateNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewTemplateNode(id, config)
}

// ID returns the factory ID.
func (f *TemplateNodeFactory) ID() string {
	return models.NodeTypeWhatsAppTemplate
}

// Name returns the factory name.
func (f *TemplateNodeFactory) Name() string {
	return "WhatsApp Template"
}

// Description returns the factory description.
func (f *TemplateNodeFactory) Description() string {
	return "Sends a pre-approved message template, allowed even outside the 24-hour window"
}

// Schema returns the JSON schema for whatsapp_template node configuration.
func (f *TemplateNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{
				"type":        "string",
				"description": "Provider-approved template name",
			},
			"language": map[string]any{
				"type":    "string",
				"default": "en",
			},
			"parameters": map[string]any{
				"type":        "object",
				"description": "Template parameter bindings. Values support templating.",
			},
		},
		"required": []string{"name"},
	}
}
