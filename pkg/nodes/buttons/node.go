// Package buttons provides the interactive reply-buttons node.
package buttons

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/template"
)

// Providers cap reply buttons at three per message.
const maxButtons = 3

// ButtonsNode offers up to three reply buttons and suspends until the
// contact taps one. The tapped option selects the matching labeled edge and
// is optionally bound to a variable.
type ButtonsNode struct {
	id       string
	text     string
	variable string
	options  []models.InteractiveOption
}

// NewButtonsNode creates a new interactive_buttons node.
func NewButtonsNode(id string, config map[string]any) (*ButtonsNode, error) {
	text, ok := config["text"].(string)
	if !ok || text == "" {
		return nil, errors.New("missing required field 'text'")
	}

	options, err := parseOptions(config["buttons"])
	if err != nil {
		return nil, err
	}

	if len(options) > maxButtons {
		return nil, fmt.Errorf("at most %d buttons are allowed, got %d", maxButtons, len(options))
	}

	node := &ButtonsNode{id: id, text: text, options: options}

	if variable, ok := config["variable"].(string); ok {
		node.variable = variable
	}

	return node, nil
}

// ID returns the node ID.
func (n *ButtonsNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *ButtonsNode) Type() string {
	return models.NodeTypeInteractiveButtons
}

// Execute offers the buttons on first entry and resolves the tap on resume.
func (n *ButtonsNode) Execute(_ context.Context, ec models.ExecutionContext) (*models.StepResult, error) {
	if ec.Reply == nil {
		return n.offer(&ec)
	}

	option := matchOption(n.options, ec.Reply.Text)
	if option == nil {
		result, err := n.offer(&ec)
		if err != nil {
			return nil, err
		}

		result.InvalidReply = true

		return result, nil
	}

	result := models.Continue()
	if ec.HasBranch(option.ID) {
		result = models.ContinueTo(option.ID)
	}

	if n.variable != "" {
		result.Bindings = map[string]any{n.variable: option.ID}
	}

	return result, nil
}

func (n *ButtonsNode) offer(ec *models.ExecutionContext) (*models.StepResult, error) {
	body, err := template.RenderString(n.text, ec)
	if err != nil {
		return nil, fmt.Errorf("failed to render button prompt: %w", err)
	}

	result := models.Suspend()
	result.Outbound = []*models.OutboundMessage{{Text: body, Options: n.options}}

	return result, nil
}

func parseOptions(raw any) ([]models.InteractiveOption, error) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, errors.New("missing required field 'buttons'")
	}

	options := make([]models.InteractiveOption, 0, len(items))

	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, errors.New("field 'buttons' must contain objects")
		}

		id, _ := entry["id"].(string)
		title, _ := entry["title"].(string)

		if id == "" || title == "" {
			return nil, errors.New("each button needs 'id' and 'title'")
		}

		description, _ := entry["description"].(string)

		options = append(options, models.InteractiveOption{ID: id, Title: title, Description: description})
	}

	return options, nil
}

// matchOption resolves a reply to an option by ID first, then by title. The
// provider sends the option ID for interactive replies; the title fallback
// covers contacts typing the label instead of tapping.
func matchOption(options []models.InteractiveOption, reply string) *models.InteractiveOption {
	trimmed := strings.TrimSpace(reply)

	for i := range options {
		if options[i].ID == trimmed {
			return &options[i]
		}
	}

	for i := range options {
		if strings.EqualFold(options[i].Title, trimmed) {
			return &options[i]
		}
	}

	return nil
}
