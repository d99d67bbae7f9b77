// Package dbquery provides the customer database query node.
package dbquery

import (
	"context"
	"errors"
	"fmt"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
	"github.com/zapflow/zapflow/pkg/template"
)

// DatabaseQueryNode runs one statement through the query executor
// collaborator and binds the rows. The same idempotency contract as api_call
// applies to retried steps.
type DatabaseQueryNode struct {
	id       string
	query    string
	args     map[string]any
	variable string
	executor protocol.QueryExecutor
}

// NewDatabaseQueryNode creates a new database_query node.
func NewDatabaseQueryNode(id string, config map[string]any, executor protocol.QueryExecutor) (*DatabaseQueryNode, error) {
	query, ok := config["query"].(string)
	if !ok || query == "" {
		return nil, errors.New("missing required field 'query'")
	}

	node := &DatabaseQueryNode{id: id, query: query, executor: executor}

	if args, ok := config["args"].(map[string]any); ok {
		node.args = args
	}

	if variable, ok := config["variable"].(string); ok {
		node.variable = variable
	}

	return node, nil
}

// ID returns the node ID.
func (n *DatabaseQueryNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *DatabaseQueryNode) Type() string {
	return models.NodeTypeDatabaseQuery
}

// Execute runs the statement and binds the result rows.
func (n *DatabaseQueryNode) Execute(ctx context.Context, ec models.ExecutionContext) (*models.StepResult, error) {
	args, err := renderArgs(n.args, &ec)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s:%s:%d:%d:%s", ec.OrganizationID, ec.ContactID, ec.Generation, ec.Step, n.id)

	response, err := n.executor.Query(ctx, n.query, args, key)
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	result := models.Continue()

	if n.variable != "" {
		result.Bindings = map[string]any{
			n.variable: map[string]any{
				"rows":  response.Rows,
				"count": len(response.Rows),
			},
		}
	}

	return result, nil
}

func renderArgs(args map[string]any, ec *models.ExecutionContext) (map[string]any, error) {
	if args == nil {
		return nil, nil
	}

	rendered := make(map[string]any, len(args))

	for name, value := range args {
		text, ok := value.(string)
		if !ok {
			rendered[name] = value

			continue
		}

		out, err := template.RenderWithContext(text, ec)
		if err != nil {
			return nil, fmt.Errorf("failed to render query argument %q: %w", name, err)
		}

		rendered[name] = out
	}

	return rendered, nil
}
