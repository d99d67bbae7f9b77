package flow_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapflow/zapflow/pkg/flow"
	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/registry"
	"github.com/zapflow/zapflow/pkg/testutil"
)

func newValidator() *flow.Validator {
	reg := registry.NewDefaultRegistry(slog.Default(), registry.Collaborators{})

	return flow.NewValidator(reg)
}

func TestValidate_AcceptsWellFormedFlow(t *testing.T) {
	err := newValidator().Validate(testutil.LinearFlow())

	assert.NoError(t, err)
}

func TestValidate_RejectsMissingStartNode(t *testing.T) {
	f := testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("hello", models.NodeTypeMessage, map[string]any{"text": "Hi"}),
			testutil.Node("bye", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(testutil.Edge("hello", "bye")),
	)

	err := newValidator().Validate(f)

	require.Error(t, err)
	assert.True(t, flow.IsValidationError(err))
	assert.Contains(t, err.Error(), "exactly one start node")
}

func TestValidate_RejectsMultipleStartNodes(t *testing.T) {
	f := testutil.LinearFlow()
	f.Nodes = append(f.Nodes, testutil.Node("start2", models.NodeTypeStart, nil))
	f.Edges = append(f.Edges, testutil.Edge("start2", "hello"))

	err := newValidator().Validate(f)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one start node")
}

func TestValidate_RejectsStartWithIncomingEdge(t *testing.T) {
	f := testutil.LinearFlow()
	f.Edges = append(f.Edges, testutil.Edge("hello", "start"))

	err := newValidator().Validate(f)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "incoming edges")
}

func TestValidate_RejectsUnknownNodeType(t *testing.T) {
	f := testutil.LinearFlow()
	f.Nodes[1].Type = "telepathy"

	err := newValidator().Validate(f)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestValidate_RejectsDanglingEdge(t *testing.T) {
	f := testutil.LinearFlow()
	f.Edges = append(f.Edges, testutil.Edge("bye", "nowhere"))

	err := newValidator().Validate(f)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target node")
}

func TestValidate_RejectsDeadEndNonTerminalNode(t *testing.T) {
	f := testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("hello", models.NodeTypeMessage, map[string]any{"text": "Hi"}),
		),
		testutil.WithEdges(testutil.Edge("start", "hello")),
	)

	err := newValidator().Validate(f)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no outgoing edges")
}

func TestValidate_HandoffMayBeDeadEnd(t *testing.T) {
	f := testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("human", models.NodeTypeHandoff, nil),
		),
		testutil.WithEdges(testutil.Edge("start", "human")),
	)

	err := newValidator().Validate(f)

	assert.NoError(t, err)
}

func TestValidate_RejectsConditionOutcomeWithoutEdge(t *testing.T) {
	f := testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("check", models.NodeTypeCondition, map[string]any{
				"predicates": []any{
					map[string]any{
						"variable": "age",
						"operator": "gt",
						"value":    "18",
						"type":     "number",
						"branch":   "adult",
					},
				},
			}),
			testutil.Node("done", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "check"),
			testutil.LabeledEdge("check", "done", "default"),
		),
	)

	err := newValidator().Validate(f)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `outcome "adult" with no matching edge`)
}

func TestValidate_RejectsNonNumericPredicateValue(t *testing.T) {
	f := testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("check", models.NodeTypeCondition, map[string]any{
				"predicates": []any{
					map[string]any{
						"variable": "age",
						"operator": "gt",
						"value":    "eighteen",
						"type":     "number",
						"branch":   "adult",
					},
				},
			}),
			testutil.Node("done", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "check"),
			testutil.LabeledEdge("check", "done", "adult"),
		),
	)

	err := newValidator().Validate(f)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not numeric")
}

func TestValidate_RejectsRandomWithoutPositiveWeights(t *testing.T) {
	f := testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("split", models.NodeTypeRandom, nil),
			testutil.Node("a", models.NodeTypeEnd, nil),
			testutil.Node("b", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "split"),
			testutil.WeightedEdge("split", "a", "variant_a", 0),
			testutil.WeightedEdge("split", "b", "variant_b", 0),
		),
	)

	err := newValidator().Validate(f)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no positive edge weights")
}

func TestValidate_RejectsConfigSchemaViolation(t *testing.T) {
	f := testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("hello", models.NodeTypeMessage, map[string]any{}),
			testutil.Node("bye", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "hello"),
			testutil.Edge("hello", "bye"),
		),
	)

	err := newValidator().Validate(f)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "hello config")
}
