// Package question provides the ask-and-wait node: it prompts the contact,
// suspends the execution, and validates the eventual reply.
package question

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/template"
)

const defaultMaxAttempts = 3

// Supported validation kinds for the reply.
const (
	ValidationNone    = "none"
	ValidationNumber  = "number"
	ValidationEmail   = "email"
	ValidationRegex   = "regex"
	ValidationOptions = "options"
)

// QuestionNode sends a prompt and parks the conversation until the contact
// answers. The answer is validated and bound to a variable; invalid answers
// re-prompt up to max_attempts before routing to the on_invalid branch when
// one is declared.
type QuestionNode struct {
	id          string
	text        string
	variable    string
	validation  string
	pattern     *regexp.Regexp
	options     []string
	invalidText string
	maxAttempts int
}

// NewQuestionNode creates a new question node.
func NewQuestionNode(id string, config map[string]any) (*QuestionNode, error) {
	text, ok := config["text"].(string)
	if !ok || text == "" {
		return nil, errors.New("missing required field 'text'")
	}

	variable, ok := config["variable"].(string)
	if !ok || variable == "" {
		return nil, errors.New("missing required field 'variable'")
	}

	node := &QuestionNode{
		id:          id,
		text:        text,
		variable:    variable,
		validation:  ValidationNone,
		maxAttempts: defaultMaxAttempts,
	}

	if validation, ok := config["validation"].(string); ok && validation != "" {
		node.validation = validation
	}

	switch node.validation {
	case ValidationNone, ValidationNumber, ValidationEmail:
	case ValidationRegex:
		raw, ok := config["pattern"].(string)
		if !ok || raw == "" {
			return nil, errors.New("regex validation requires field 'pattern'")
		}

		pattern, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid validation pattern: %w", err)
		}

		node.pattern = pattern
	case ValidationOptions:
		raw, ok := config["options"].([]any)
		if !ok || len(raw) == 0 {
			return nil, errors.New("options validation requires field 'options'")
		}

		for _, option := range raw {
			value, ok := option.(string)
			if !ok {
				return nil, errors.New("field 'options' must contain only strings")
			}

			node.options = append(node.options, value)
		}
	default:
		return nil, fmt.Errorf("unknown validation kind %q", node.validation)
	}

	if invalidText, ok := config["invalid_text"].(string); ok {
		node.invalidText = invalidText
	}

	if maxAttempts, ok := config["max_attempts"].(float64); ok && maxAttempts > 0 {
		node.maxAttempts = int(maxAttempts)
	}

	return node, nil
}

// ID returns the node ID.
func (n *QuestionNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *QuestionNode) Type() string {
	return models.NodeTypeQuestion
}

// Execute prompts on first entry and validates the reply on resume.
func (n *QuestionNode) Execute(_ context.Context, ec models.ExecutionContext) (*models.StepResult, error) {
	if ec.Reply == nil {
		return n.prompt(&ec)
	}

	answer := strings.TrimSpace(ec.Reply.Text)

	value, valid := n.validate(answer)
	if valid {
		result := models.Continue()
		result.Bindings = map[string]any{n.variable: value}

		return result, nil
	}

	// The attempt being judged right now is attempt PromptAttempts+1.
	if ec.HasBranch(models.EdgeLabelOnInvalid) && ec.PromptAttempts+1 >= n.maxAttempts {
		return models.ContinueTo(models.EdgeLabelOnInvalid), nil
	}

	result, err := n.prompt(&ec)
	if err != nil {
		return nil, err
	}

	result.InvalidReply = ec.Reply != nil

	return result, nil
}

func (n *QuestionNode) prompt(ec *models.ExecutionContext) (*models.StepResult, error) {
	text := n.text
	if ec.Reply != nil && n.invalidText != "" {
		text = n.invalidText
	}

	body, err := template.RenderString(text, ec)
	if err != nil {
		return nil, fmt.Errorf("failed to render question text: %w", err)
	}

	result := models.Suspend()
	result.Outbound = []*models.OutboundMessage{{Text: body}}

	return result, nil
}

// validate checks the answer and returns the value to bind. Numbers are bound
// as float64 so condition nodes can compare them numerically.
func (n *QuestionNode) validate(answer string) (any, bool) {
	if answer == "" && n.validation != ValidationNone {
		return nil, false
	}

	switch n.validation {
	case ValidationNumber:
		value, err := strconv.ParseFloat(answer, 64)
		if err != nil {
			return nil, false
		}

		return value, true
	case ValidationEmail:
		_, err := mail.ParseAddress(answer)
		if err != nil {
			return nil, false
		}

		return answer, true
	case ValidationRegex:
		if !n.pattern.MatchString(answer) {
			return nil, false
		}

		return answer, true
	case ValidationOptions:
		for _, option := range n.options {
			if strings.EqualFold(answer, option) {
				return option, true
			}
		}

		return nil, false
	default:
		return answer, true
	}
}
