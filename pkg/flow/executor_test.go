package flow_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapflow/zapflow/pkg/flow"
	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/registry"
	"github.com/zapflow/zapflow/pkg/testutil"
	"github.com/zapflow/zapflow/pkg/window"
)

type recordingDispatcher struct {
	sent []*models.OutboundMessage
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg *models.OutboundMessage) error {
	d.sent = append(d.sent, msg)

	return nil
}

type stubFlowLoader struct {
	flows map[string]*models.Flow
}

func (l *stubFlowLoader) FlowByID(_ context.Context, id string) (*models.Flow, error) {
	f, ok := l.flows[id]
	if !ok {
		return nil, flow.ErrNoStartNode
	}

	return f, nil
}

func newTestExecutor(t *testing.T, flows ...*models.Flow) (*flow.Executor, *recordingDispatcher) {
	t.Helper()

	logger := slog.Default()
	reg := registry.NewDefaultRegistry(logger, registry.Collaborators{})
	dispatcher := &recordingDispatcher{}

	loader := &stubFlowLoader{flows: make(map[string]*models.Flow)}
	for _, f := range flows {
		loader.flows[f.ID] = f
	}

	return flow.NewExecutor(reg, loader, dispatcher, logger), dispatcher
}

func openConversation(now time.Time) *models.Conversation {
	conversation := testutil.CreateTestConversation()
	conversation.Window = window.RecordInbound(conversation.Window, now)

	return conversation
}

func TestRun_LinearFlowCompletes(t *testing.T) {
	f := testutil.LinearFlow()
	executor, dispatcher := newTestExecutor(t)

	now := time.Now().UTC()
	conversation := openConversation(now)
	conversation.ActiveFlowID = f.ID
	conversation.ActiveFlowVersion = f.Version

	report, err := executor.Run(context.Background(), flow.Compile(f), conversation, "start", nil, now)

	require.NoError(t, err)
	assert.Equal(t, flow.RunCompleted, report.State)
	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, "Hello!", dispatcher.sent[0].Text)
	assert.False(t, conversation.HasSuspendedExecution())
	assert.Equal(t, int64(1), conversation.Generation)
}

func TestRun_SuspendsAtQuestion(t *testing.T) {
	f := testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("ask", models.NodeTypeQuestion, map[string]any{
				"text":     "How old are you?",
				"variable": "age",
			}),
			testutil.Node("done", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "ask"),
			testutil.Edge("ask", "done"),
		),
	)
	executor, dispatcher := newTestExecutor(t)

	now := time.Now().UTC()
	conversation := openConversation(now)

	report, err := executor.Run(context.Background(), flow.Compile(f), conversation, "start", nil, now)

	require.NoError(t, err)
	assert.Equal(t, flow.RunSuspended, report.State)
	assert.Equal(t, "ask", report.SuspendedNode)
	assert.Equal(t, models.NodeTypeQuestion, report.SuspendReason)
	assert.Equal(t, "ask", conversation.CurrentNodeID)
	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, "How old are you?", dispatcher.sent[0].Text)
}

func questionConditionFlow() *models.Flow {
	return testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("ask", models.NodeTypeQuestion, map[string]any{
				"text":       "How old are you?",
				"variable":   "age",
				"validation": "number",
			}),
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
			testutil.Node("adult-msg", models.NodeTypeMessage, map[string]any{"text": "Welcome."}),
			testutil.Node("minor-msg", models.NodeTypeMessage, map[string]any{"text": "Sorry."}),
			testutil.Node("done", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "ask"),
			testutil.Edge("ask", "check"),
			testutil.LabeledEdge("check", "adult-msg", "adult"),
			testutil.LabeledEdge("check", "minor-msg", "default"),
			testutil.Edge("adult-msg", "done"),
			testutil.Edge("minor-msg", "done"),
		),
	)
}

func TestRun_ResumeWithValidReplyTakesConditionBranch(t *testing.T) {
	f := questionConditionFlow()
	executor, dispatcher := newTestExecutor(t)

	now := time.Now().UTC()
	conversation := openConversation(now)
	graph := flow.Compile(f)

	_, err := executor.Run(context.Background(), graph, conversation, "start", nil, now)
	require.NoError(t, err)
	require.Equal(t, "ask", conversation.CurrentNodeID)

	reply := testutil.InboundText("org-test", "contact-test", "42")
	report, err := executor.Run(context.Background(), graph, conversation, conversation.CurrentNodeID, reply, now)

	require.NoError(t, err)
	assert.Equal(t, flow.RunCompleted, report.State)
	assert.Equal(t, float64(42), conversation.Bindings["age"])

	texts := make([]string, 0, len(dispatcher.sent))
	for _, msg := range dispatcher.sent {
		texts = append(texts, msg.Text)
	}

	assert.Contains(t, texts, "Welcome.")
	assert.NotContains(t, texts, "Sorry.")
}

func TestRun_InvalidReplyRepromptsAndCountsAttempt(t *testing.T) {
	f := questionConditionFlow()
	executor, _ := newTestExecutor(t)

	now := time.Now().UTC()
	conversation := openConversation(now)
	graph := flow.Compile(f)

	_, err := executor.Run(context.Background(), graph, conversation, "start", nil, now)
	require.NoError(t, err)

	reply := testutil.InboundText("org-test", "contact-test", "not a number")
	report, err := executor.Run(context.Background(), graph, conversation, conversation.CurrentNodeID, reply, now)

	require.NoError(t, err)
	assert.Equal(t, flow.RunSuspended, report.State)
	assert.Equal(t, "ask", conversation.CurrentNodeID)
	assert.Equal(t, 1, conversation.PromptAttempts)
	assert.NotContains(t, conversation.Bindings, "age")
}

func TestRun_ClosedWindowBlocksFreeFormSend(t *testing.T) {
	f := testutil.LinearFlow()
	executor, dispatcher := newTestExecutor(t)

	now := time.Now().UTC()
	conversation := testutil.CreateTestConversation()
	expired := now.Add(-time.Hour)
	conversation.Window = models.WindowState{WindowExpiresAt: &expired}

	report, err := executor.Run(context.Background(), flow.Compile(f), conversation, "start", nil, now)

	require.Error(t, err)
	assert.True(t, flow.IsOutboundBlocked(err))
	assert.Equal(t, flow.RunBlocked, report.State)
	assert.Empty(t, dispatcher.sent)
	require.Len(t, conversation.Blocked, 1)
	assert.Equal(t, "Hello!", conversation.Blocked[0].Text)
}

func TestRun_TemplateSendsThroughClosedWindow(t *testing.T) {
	f := testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("tpl", models.NodeTypeWhatsAppTemplate, map[string]any{
				"name":     "order_update",
				"language": "en",
			}),
			testutil.Node("done", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "tpl"),
			testutil.Edge("tpl", "done"),
		),
	)
	executor, dispatcher := newTestExecutor(t)

	now := time.Now().UTC()
	conversation := testutil.CreateTestConversation()

	report, err := executor.Run(context.Background(), flow.Compile(f), conversation, "start", nil, now)

	require.NoError(t, err)
	assert.Equal(t, flow.RunCompleted, report.State)
	require.Len(t, dispatcher.sent, 1)
	require.NotNil(t, dispatcher.sent[0].Template)
	assert.Equal(t, "order_update", dispatcher.sent[0].Template.Name)
	assert.Equal(t, models.TemplateRequired, dispatcher.sent[0].Verdict)
}

func TestRun_CyclicGraphFaultsAtStepBudget(t *testing.T) {
	f := testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("a", models.NodeTypeSetVariable, map[string]any{"variable": "x", "value": "1"}),
			testutil.Node("b", models.NodeTypeSetVariable, map[string]any{"variable": "y", "value": "2"}),
		),
		testutil.WithEdges(
			testutil.Edge("start", "a"),
			testutil.Edge("a", "b"),
			testutil.Edge("b", "a"),
		),
	)
	executor, _ := newTestExecutor(t)

	now := time.Now().UTC()
	conversation := openConversation(now)

	report, err := executor.Run(context.Background(), flow.Compile(f), conversation, "start", nil, now)

	require.Error(t, err)
	assert.True(t, flow.IsNodeFault(err))
	assert.ErrorIs(t, err, flow.ErrStepBudgetExceeded)
	assert.Equal(t, flow.RunFaulted, report.State)
	assert.True(t, conversation.Faulted)
	assert.Equal(t, flow.MaxStepsPerCycle+1, report.Steps)
}

func TestRun_DelaySuspendsWithResumeAt(t *testing.T) {
	f := testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("wait", models.NodeTypeDelay, map[string]any{"seconds": float64(3600)}),
			testutil.Node("done", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "wait"),
			testutil.Edge("wait", "done"),
		),
	)
	executor, _ := newTestExecutor(t)

	now := time.Now().UTC()
	conversation := openConversation(now)

	report, err := executor.Run(context.Background(), flow.Compile(f), conversation, "start", nil, now)

	require.NoError(t, err)
	assert.Equal(t, flow.RunSuspended, report.State)
	assert.Equal(t, "delay", report.SuspendReason)
	require.NotNil(t, conversation.DelayUntil)
	assert.Equal(t, now.Add(time.Hour).Unix(), conversation.DelayUntil.Unix())
}

func TestRun_NodeErrorRoutesToOnFaultEdge(t *testing.T) {
	f := testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("check", models.NodeTypeCondition, map[string]any{
				"predicates": []any{
					map[string]any{
						"variable": "missing",
						"operator": "eq",
						"value":    "x",
						"branch":   "found",
					},
				},
			}),
			testutil.Node("apology", models.NodeTypeMessage, map[string]any{"text": "Something went wrong."}),
			testutil.Node("done", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "check"),
			testutil.LabeledEdge("check", "done", "found"),
			testutil.LabeledEdge("check", "apology", models.EdgeLabelOnFault),
			testutil.Edge("apology", "done"),
		),
	)
	executor, dispatcher := newTestExecutor(t)

	now := time.Now().UTC()
	conversation := openConversation(now)

	report, err := executor.Run(context.Background(), flow.Compile(f), conversation, "start", nil, now)

	require.NoError(t, err)
	assert.Equal(t, flow.RunCompleted, report.State)
	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, "Something went wrong.", dispatcher.sent[0].Text)
	assert.False(t, conversation.Faulted)
}

func TestRun_UnmatchedConditionWithoutDefaultFaults(t *testing.T) {
	f := testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("check", models.NodeTypeCondition, map[string]any{
				"predicates": []any{
					map[string]any{
						"variable": "missing",
						"operator": "eq",
						"value":    "x",
						"branch":   "found",
					},
				},
			}),
			testutil.Node("done", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "check"),
			testutil.LabeledEdge("check", "done", "found"),
		),
	)
	executor, _ := newTestExecutor(t)

	now := time.Now().UTC()
	conversation := openConversation(now)

	report, err := executor.Run(context.Background(), flow.Compile(f), conversation, "start", nil, now)

	require.Error(t, err)
	assert.True(t, flow.IsNodeFault(err))
	assert.Equal(t, flow.RunFaulted, report.State)
	assert.True(t, conversation.Faulted)
	assert.NotEmpty(t, conversation.FaultReason)
}

func TestRun_JumpTransfersToTargetFlow(t *testing.T) {
	target := testutil.LinearFlow()
	f := testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("go", models.NodeTypeJump, map[string]any{"flow_id": target.ID}),
		),
		testutil.WithEdges(
			testutil.Edge("start", "go"),
		),
	)
	executor, dispatcher := newTestExecutor(t, target)

	now := time.Now().UTC()
	conversation := openConversation(now)
	conversation.ActiveFlowID = f.ID
	conversation.ActiveFlowVersion = f.Version

	report, err := executor.Run(context.Background(), flow.Compile(f), conversation, "start", nil, now)

	require.NoError(t, err)
	assert.Equal(t, flow.RunCompleted, report.State)
	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, "Hello!", dispatcher.sent[0].Text)
}

func TestRun_VariablesInterpolateIntoMessages(t *testing.T) {
	f := testutil.CreateTestFlow(
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("set", models.NodeTypeSetVariable, map[string]any{
				"variable": "name",
				"value":    "Ana",
			}),
			testutil.Node("greet", models.NodeTypeMessage, map[string]any{
				"text": "Hi {{.variables.name}}!",
			}),
			testutil.Node("done", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "set"),
			testutil.Edge("set", "greet"),
			testutil.Edge("greet", "done"),
		),
	)
	executor, dispatcher := newTestExecutor(t)

	now := time.Now().UTC()
	conversation := openConversation(now)

	_, err := executor.Run(context.Background(), flow.Compile(f), conversation, "start", nil, now)

	require.NoError(t, err)
	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, "Hi Ana!", dispatcher.sent[0].Text)
}
