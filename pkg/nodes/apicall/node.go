// Package apicall provides the external HTTP request node.
package apicall

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
	"github.com/zapflow/zapflow/pkg/template"
)

// APICallNode performs one HTTP request through the HTTP executor
// collaborator and binds the response. The idempotency key is stable per
// (conversation, generation, step, node) so a cycle replayed after a crash
// does not repeat the side effect, while a legal loop revisiting the node
// within one run is not deduplicated remotely.
type APICallNode struct {
	id       string
	method   string
	url      string
	body     map[string]any
	variable string
	client   protocol.HTTPExecutor
}

// NewAPICallNode creates a new api_call node.
func NewAPICallNode(id string, config map[string]any, client protocol.HTTPExecutor) (*APICallNode, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, errors.New("missing required field 'url'")
	}

	node := &APICallNode{
		id:     id,
		method: "GET",
		url:    url,
		client: client,
	}

	if method, ok := config["method"].(string); ok && method != "" {
		node.method = strings.ToUpper(method)
	}

	if body, ok := config["body"].(map[string]any); ok {
		node.body = body
	}

	if variable, ok := config["variable"].(string); ok {
		node.variable = variable
	}

	return node, nil
}

// ID returns the node ID.
func (n *APICallNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *APICallNode) Type() string {
	return models.NodeTypeAPICall
}

// Execute performs the request and binds the response.
func (n *APICallNode) Execute(ctx context.Context, ec models.ExecutionContext) (*models.StepResult, error) {
	url, err := template.RenderString(n.url, &ec)
	if err != nil {
		return nil, fmt.Errorf("failed to render request URL: %w", err)
	}

	body, err := renderBody(n.body, &ec)
	if err != nil {
		return nil, err
	}

	key := idempotencyKey(&ec, n.id)

	response, err := n.client.Do(ctx, n.method, url, body, key)
	if err != nil {
		return nil, fmt.Errorf("api call failed: %w", err)
	}

	if response.StatusCode >= 400 {
		return nil, fmt.Errorf("api call returned status %d", response.StatusCode)
	}

	result := models.Continue()

	if n.variable != "" {
		result.Bindings = map[string]any{
			n.variable: map[string]any{
				"status_code": response.StatusCode,
				"body":        response.Body,
			},
		}
	}

	return result, nil
}

func renderBody(body map[string]any, ec *models.ExecutionContext) (map[string]any, error) {
	if body == nil {
		return nil, nil
	}

	rendered := make(map[string]any, len(body))

	for name, value := range body {
		text, ok := value.(string)
		if !ok {
			rendered[name] = value

			continue
		}

		out, err := template.RenderWithContext(text, ec)
		if err != nil {
			return nil, fmt.Errorf("failed to render request body field %q: %w", name, err)
		}

		rendered[name] = out
	}

	return rendered, nil
}

func idempotencyKey(ec *models.ExecutionContext, nodeID string) string {
	return fmt.Sprintf("%s:%s:%d:%d:%s", ec.OrganizationID, ec.ContactID, ec.Generation, ec.Step, nodeID)
}
