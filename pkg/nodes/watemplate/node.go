// Package watemplate provides the pre-approved template send node. Template
// sends are the only payload the provider accepts outside the 24-hour
// conversation window.
package watemplate

import (
	"context"
	"errors"
	"fmt"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/template"
)

// TemplateNode requests one pre-approved template send with rendered
// parameter bindings.
type TemplateNode struct {
	id         string
	name       string
	language   string
	parameters map[string]string
}

// NewTemplateNode creates a new whatsapp_template node.
func NewTemplateNode(id string, config map[string]any) (*TemplateNode, error) {
	name, ok := config["name"].(string)
	if !ok || name == "" {
		return nil, errors.New("missing required field 'name'")
	}

	node := &TemplateNode{id: id, name: name, language: "en"}

	if language, ok := config["language"].(string); ok && language != "" {
		node.language = language
	}

	if raw, ok := config["parameters"].(map[string]any); ok {
		node.parameters = make(map[string]string, len(raw))

		for key, value := range raw {
			text, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("template parameter %q must be a string", key)
			}

			node.parameters[key] = text
		}
	}

	return node, nil
}

// ID returns the node ID.
func (n *TemplateNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *TemplateNode) Type() string {
	return models.NodeTypeWhatsAppTemplate
}

// Execute renders the parameters and emits the template send request.
func (n *TemplateNode) Execute(_ context.Context, ec models.ExecutionContext) (*models.StepResult, error) {
	parameters := make(map[string]string, len(n.parameters))

	for key, value := range n.parameters {
		rendered, err := template.RenderString(value, &ec)
		if err != nil {
			return nil, fmt.Errorf("failed to render template parameter %q: %w", key, err)
		}

		parameters[key] = rendered
	}

	result := models.Continue()
	result.Outbound = []*models.OutboundMessage{{
		Template: &models.TemplateReference{
			Name:       n.name,
			Language:   n.language,
			Parameters: parameters,
		},
	}}

	return result, nil
}
