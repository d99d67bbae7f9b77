package dbquery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

type stubQueries struct {
	query string
	args  map[string]any
	key   string

	result *protocol.CallResult
	err    error
}

func (s *stubQueries) Query(_ context.Context, query string, args map[string]any, key string) (*protocol.CallResult, error) {
	s.query, s.args, s.key = query, args, key

	return s.result, s.err
}

func TestNewDatabaseQueryNode_RequiresQuery(t *testing.T) {
	_, err := NewDatabaseQueryNode("lookup", map[string]any{}, &stubQueries{})
	assert.Error(t, err)
}

func TestExecute_RendersArgsAndBindsRows(t *testing.T) {
	executor := &stubQueries{result: &protocol.CallResult{
		Rows: []map[string]any{{"plan": "gold"}},
	}}

	node, err := NewDatabaseQueryNode("lookup", map[string]any{
		"query":    "SELECT plan FROM accounts WHERE ref = :ref",
		"args":     map[string]any{"ref": "{{.variables.account_ref}}"},
		"variable": "account",
	}, executor)
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), models.ExecutionContext{
		OrganizationID: "org-1",
		ContactID:      "contact-1",
		Generation:     2,
		Step:           4,
		Variables:      map[string]any{"account_ref": "ACC-9"},
	})

	require.NoError(t, err)
	assert.Equal(t, "ACC-9", executor.args["ref"])
	assert.Equal(t, "org-1:contact-1:2:4:lookup", executor.key)

	bound := result.Bindings["account"].(map[string]any)
	assert.Equal(t, 1, bound["count"])
	assert.Equal(t, "gold", bound["rows"].([]map[string]any)[0]["plan"])
}

func TestExecute_QueryErrorFailsStep(t *testing.T) {
	executor := &stubQueries{err: errors.New("relation does not exist")}

	node, err := NewDatabaseQueryNode("lookup", map[string]any{"query": "SELECT 1"}, executor)
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), models.ExecutionContext{})

	assert.Error(t, err)
}
