package collaborators

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/zapflow/zapflow/pkg/protocol"
)

// namedParam matches :name placeholders in node-configured statements.
var namedParam = regexp.MustCompile(`:([a-zA-Z_][a-zA-Z0-9_]*)`)

// SQLQueryExecutor runs database_query node statements against the customer
// database. Named parameters are rewritten to positional placeholders.
type SQLQueryExecutor struct {
	db *sql.DB
}

// NewSQLQueryExecutor creates the default query executor.
func NewSQLQueryExecutor(db *sql.DB) *SQLQueryExecutor {
	return &SQLQueryExecutor{db: db}
}

// Query runs one statement and returns the rows as generic maps. The
// idempotency key is unused here; statement idempotency is the flow author's
// responsibility for writes.
func (e *SQLQueryExecutor) Query(ctx context.Context, query string, args map[string]any, _ string) (*protocol.CallResult, error) {
	rewritten, values := rewriteNamedParams(query, args)

	rows, err := e.db.QueryContext(ctx, rewritten, values...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &protocol.CallResult{Rows: make([]map[string]any, 0)}

	for rows.Next() {
		cells := make([]any, len(columns))
		pointers := make([]any, len(columns))

		for i := range cells {
			pointers[i] = &cells[i]
		}

		err = rows.Scan(pointers...)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			if b, ok := cells[i].([]byte); ok {
				row[column] = string(b)
			} else {
				row[column] = cells[i]
			}
		}

		result.Rows = append(result.Rows, row)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

func rewriteNamedParams(query string, args map[string]any) (string, []any) {
	values := make([]any, 0, len(args))

	rewritten := namedParam.ReplaceAllStringFunc(query, func(match string) string {
		name := match[1:]

		value, ok := args[name]
		if !ok {
			return match
		}

		values = append(values, value)

		return fmt.Sprintf("$%d", len(values))
	})

	return rewritten, values
}
