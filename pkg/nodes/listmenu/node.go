// Package listmenu provides the interactive list-menu node.
package listmenu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/template"
)

// Providers cap list menus at ten rows.
const maxRows = 10

// ListMenuNode offers a list menu of up to ten rows and suspends until the
// contact picks one. The picked row selects the matching labeled edge and is
// optionally bound to a variable.
type ListMenuNode struct {
	id       string
	text     string
	button   string
	variable string
	options  []models.InteractiveOption
}

// NewListMenuNode creates a new interactive_list node.
func NewListMenuNode(id string, config map[string]any) (*ListMenuNode, error) {
	text, ok := config["text"].(string)
	if !ok || text == "" {
		return nil, errors.New("missing required field 'text'")
	}

	options, err := parseRows(config["rows"])
	if err != nil {
		return nil, err
	}

	if len(options) > maxRows {
		return nil, fmt.Errorf("at most %d rows are allowed, got %d", maxRows, len(options))
	}

	node := &ListMenuNode{id: id, text: text, button: "Options", options: options}

	if button, ok := config["button"].(string); ok && button != "" {
		node.button = button
	}

	if variable, ok := config["variable"].(string); ok {
		node.variable = variable
	}

	return node, nil
}

// ID returns the node ID.
func (n *ListMenuNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *ListMenuNode) Type() string {
	return models.NodeTypeInteractiveList
}

// Execute offers the menu on first entry and resolves the pick on resume.
func (n *ListMenuNode) Execute(_ context.Context, ec models.ExecutionContext) (*models.StepResult, error) {
	if ec.Reply == nil {
		return n.offer(&ec)
	}

	option := matchRow(n.options, ec.Reply.Text)
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

func (n *ListMenuNode) offer(ec *models.ExecutionContext) (*models.StepResult, error) {
	body, err := template.RenderString(n.text, ec)
	if err != nil {
		return nil, fmt.Errorf("failed to render list prompt: %w", err)
	}

	result := models.Suspend()
	result.Outbound = []*models.OutboundMessage{{Text: body, Options: n.options}}

	return result, nil
}

func parseRows(raw any) ([]models.InteractiveOption, error) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, errors.New("missing required field 'rows'")
	}

	options := make([]models.InteractiveOption, 0, len(items))

	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, errors.New("field 'rows' must contain objects")
		}

		id, _ := entry["id"].(string)
		title, _ := entry["title"].(string)

		if id == "" || title == "" {
			return nil, errors.New("each row needs 'id' and 'title'")
		}

		description, _ := entry["description"].(string)

		options = append(options, models.InteractiveOption{ID: id, Title: title, Description: description})
	}

	return options, nil
}

func matchRow(options []models.InteractiveOption, reply string) *models.InteractiveOption {
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
