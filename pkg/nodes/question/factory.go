package question

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// QuestionNodeFactory creates QuestionNode instances.
type QuestionNodeFactory struct{}

// NewQuestionNodeFactory creates a new factory instance.
func NewQuestionNodeFactory() protocol.NodeFactory {
	return &QuestionNodeFactory{}
}

// Create creates a new QuestionNode instance.
func (f *QuestionNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewQuestionNode(id, config)
}

// ID returns the factory ID.
func (f *QuestionNodeFactory) ID() string {
	return models.NodeTypeQuestion
}

// Name returns the factory name.
func (f *QuestionNodeFactory) Name() string {
	return "Question"
}

// Description returns the factory description.
func (f *QuestionNodeFactory) Description() string {
	return "Sends a prompt, waits for the contact's reply, validates it and binds it to a variable"
}

// Schema returns the JSON schema for question node configuration.
func (f *QuestionNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "Prompt sent to the contact. Supports templating.",
			},
			"variable": map[string]any{
				"type":        "string",
				"description": "Variable name the validated answer is bound to",
			},
			"validation": map[string]any{
				"type":        "string",
				"description": "Validation applied to the reply",
				"enum":        []string{ValidationNone, ValidationNumber, ValidationEmail, ValidationRegex, ValidationOptions},
				"default":     ValidationNone,
			},
			"pattern": map[string]any{
				"type":        "string",
				"description": "Regular expression, required when validation is 'regex'",
			},
			"options": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Accepted answers, required when validation is 'options'",
			},
			"invalid_text": map[string]any{
				"type":        "string",
				"description": "Re-prompt sent after an invalid answer. Defaults to the prompt itself.",
			},
			"max_attempts": map[string]any{
				"type":        "number",
				"description": "Invalid answers tolerated before routing to the on_invalid branch",
				"default":     defaultMaxAttempts,
			},
		},
		"required": []string{"text", "variable"},
	}
}
