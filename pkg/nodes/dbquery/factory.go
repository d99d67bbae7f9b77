package dbquery

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// DatabaseQueryNodeFactory creates DatabaseQueryNode instances bound to a
// query executor.
type DatabaseQueryNodeFactory struct {
	executor protocol.QueryExecutor
}

// NewDatabaseQueryNodeFactory creates a new factory instance.
func NewDatabaseQueryNodeFactory(executor protocol.QueryExecutor) protocol.NodeFactory {
	return &DatabaseQueryNodeFactory{executor: executor}
}

// Create creates a new DatabaseQueryNode instance.
func (f *DatabaseQueryNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewDatabaseQueryNode(id, config, f.executor)
}

// ID returns the factory ID.
func (f *DatabaseQueryNodeFactory) ID() string {
	return models.NodeTypeDatabaseQuery
}

// Name returns the factory name.
func (f *DatabaseQueryNodeFactory) Name() string {
	return "Database Query"
}

// Description returns the factory description.
func (f *DatabaseQueryNodeFactory) Description() string {
	return "Runs a read or write statement against the customer database and binds the rows"
}

// Schema returns the JSON schema for database_query node configuration.
func (f *DatabaseQueryNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "SQL statement with named parameters",
				"examples":    []string{"SELECT plan FROM customers WHERE phone = :phone"},
			},
			"args": map[string]any{
				"type":        "object",
				"description": "Named parameter values. String values support templating.",
			},
			"variable": map[string]any{
				"type":        "string",
				"description": "Optional variable name the result rows are bound to",
			},
		},
		"required": []string{"query"},
	}
}
