package services_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zapflow/zapflow/pkg/events"
	"github.com/zapflow/zapflow/pkg/flow"
	"github.com/zapflow/zapflow/pkg/locks"
	"github.com/zapflow/zapflow/pkg/mocks"
	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/persistence/file"
	"github.com/zapflow/zapflow/pkg/protocol"
	"github.com/zapflow/zapflow/pkg/registry"
	"github.com/zapflow/zapflow/pkg/services"
	"github.com/zapflow/zapflow/pkg/testutil"
)

type recordingDispatcher struct {
	sent []*models.OutboundMessage
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg *models.OutboundMessage) error {
	d.sent = append(d.sent, msg)

	return nil
}

type recordingHumanQueue struct {
	requests []protocol.HandoffRequest
}

func (q *recordingHumanQueue) Enqueue(_ context.Context, req protocol.HandoffRequest) error {
	q.requests = append(q.requests, req)

	return nil
}

type engineFixture struct {
	engine      *services.Engine
	persistence *file.Persistence
	eventBus    *mocks.MockEventBus
	dispatcher  *recordingDispatcher
	humans      *recordingHumanQueue
}

func newEngineFixture(t *testing.T, policy flow.OverridePolicy) *engineFixture {
	t.Helper()

	logger := slog.Default()
	p := file.NewPersistence(t.TempDir())

	eventBus := &mocks.MockEventBus{}
	eventBus.On("GenerateID").Return("evt-test")
	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	dispatcher := &recordingDispatcher{}
	humans := &recordingHumanQueue{}
	reg := registry.NewDefaultRegistry(logger, registry.Collaborators{Humans: humans})
	executor := flow.NewExecutor(reg, p.FlowRepository(), dispatcher, logger)
	resolver := flow.NewResolver(logger)

	engine := services.NewEngine(p, nil, executor, resolver, eventBus,
		locks.NewMemoryLocker(), policy, "test-worker", logger)

	return &engineFixture{
		engine:      engine,
		persistence: p,
		eventBus:    eventBus,
		dispatcher:  dispatcher,
		humans:      humans,
	}
}

func (f *engineFixture) saveFlow(t *testing.T, definition *models.Flow) {
	t.Helper()
	require.NoError(t, f.persistence.FlowRepository().SaveFlow(context.Background(), definition))
}

func (f *engineFixture) conversation(t *testing.T, organizationID, contactID string) *models.Conversation {
	t.Helper()

	conversation, err := f.persistence.ConversationRepository().Conversation(
		context.Background(), organizationID, contactID)
	require.NoError(t, err)

	return conversation
}

func TestProcessInbound_KeywordStartsAndCompletesFlow(t *testing.T) {
	fixture := newEngineFixture(t, flow.ResumeWins)
	fixture.saveFlow(t, testutil.LinearFlow(testutil.WithKeywords("hello")))

	msg := testutil.InboundText("org-test", "contact-test", "hello")
	err := fixture.engine.ProcessInbound(context.Background(), msg)

	require.NoError(t, err)
	require.Len(t, fixture.dispatcher.sent, 1)
	assert.Equal(t, "Hello!", fixture.dispatcher.sent[0].Text)

	conversation := fixture.conversation(t, "org-test", "contact-test")
	assert.False(t, conversation.HasSuspendedExecution())
	assert.Equal(t, int64(1), conversation.Generation)
	require.NotNil(t, conversation.Window.WindowExpiresAt)
}

func TestProcessInbound_QuestionSuspendsThenReplyResumes(t *testing.T) {
	fixture := newEngineFixture(t, flow.ResumeWins)
	fixture.saveFlow(t, testutil.CreateTestFlow(
		testutil.WithKeywords("signup"),
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("ask", models.NodeTypeQuestion, map[string]any{
				"text":       "Your email?",
				"variable":   "email",
				"validation": "email",
			}),
			testutil.Node("thanks", models.NodeTypeMessage, map[string]any{
				"text": "Thanks {{.variables.email}}",
			}),
			testutil.Node("done", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "ask"),
			testutil.Edge("ask", "thanks"),
			testutil.Edge("thanks", "done"),
		),
	))

	ctx := context.Background()

	err := fixture.engine.ProcessInbound(ctx, testutil.InboundText("org-test", "contact-test", "signup"))
	require.NoError(t, err)

	conversation := fixture.conversation(t, "org-test", "contact-test")
	assert.Equal(t, "ask", conversation.CurrentNodeID)

	err = fixture.engine.ProcessInbound(ctx, testutil.InboundText("org-test", "contact-test", "ana@example.com"))
	require.NoError(t, err)

	conversation = fixture.conversation(t, "org-test", "contact-test")
	assert.False(t, conversation.HasSuspendedExecution())
	assert.Equal(t, "ana@example.com", conversation.Bindings["email"])

	last := fixture.dispatcher.sent[len(fixture.dispatcher.sent)-1]
	assert.Equal(t, "Thanks ana@example.com", last.Text)
}

func TestProcessInbound_NoMatchIsNoOpButOpensWindow(t *testing.T) {
	fixture := newEngineFixture(t, flow.ResumeWins)
	fixture.saveFlow(t, testutil.LinearFlow(testutil.WithKeywords("hello")))

	err := fixture.engine.ProcessInbound(context.Background(),
		testutil.InboundText("org-test", "contact-test", "unrelated"))

	require.NoError(t, err)
	assert.Empty(t, fixture.dispatcher.sent)

	conversation := fixture.conversation(t, "org-test", "contact-test")
	assert.False(t, conversation.HasSuspendedExecution())
	require.NotNil(t, conversation.Window.WindowExpiresAt)
}

func TestProcessInbound_ResumeWinsOverKeyword(t *testing.T) {
	fixture := newEngineFixture(t, flow.ResumeWins)
	fixture.saveFlow(t, testutil.CreateTestFlow(
		testutil.WithKeywords("survey"),
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("ask", models.NodeTypeQuestion, map[string]any{
				"text":     "Favorite word?",
				"variable": "word",
			}),
			testutil.Node("done", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "ask"),
			testutil.Edge("ask", "done"),
		),
	))

	ctx := context.Background()

	require.NoError(t, fixture.engine.ProcessInbound(ctx,
		testutil.InboundText("org-test", "contact-test", "survey")))

	// The reply is literally the trigger keyword; it must be treated as the
	// answer, not as a restart.
	require.NoError(t, fixture.engine.ProcessInbound(ctx,
		testutil.InboundText("org-test", "contact-test", "survey")))

	conversation := fixture.conversation(t, "org-test", "contact-test")
	assert.Equal(t, "survey", conversation.Bindings["word"])
	assert.False(t, conversation.HasSuspendedExecution())
}

func TestProcessInbound_FaultedConversationOnlyRecordsWindow(t *testing.T) {
	fixture := newEngineFixture(t, flow.ResumeWins)
	fixture.saveFlow(t, testutil.LinearFlow(testutil.WithKeywords("hello")))

	ctx := context.Background()
	conversation := testutil.CreateTestConversation()
	conversation.Faulted = true
	conversation.FaultReason = "step budget exceeded"
	conversation.CurrentNodeID = "a"
	require.NoError(t, fixture.persistence.ConversationRepository().SaveConversation(ctx, conversation))

	err := fixture.engine.ProcessInbound(ctx, testutil.InboundText("org-test", "contact-test", "hello"))

	require.NoError(t, err)
	assert.Empty(t, fixture.dispatcher.sent)

	saved := fixture.conversation(t, "org-test", "contact-test")
	assert.True(t, saved.Faulted)
	require.NotNil(t, saved.Window.WindowExpiresAt)
}

func delayFlow() *models.Flow {
	return testutil.CreateTestFlow(
		testutil.WithKeywords("remind"),
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("wait", models.NodeTypeDelay, map[string]any{"seconds": float64(60)}),
			testutil.Node("ping", models.NodeTypeMessage, map[string]any{"text": "Still there?"}),
			testutil.Node("done", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "wait"),
			testutil.Edge("wait", "ping"),
			testutil.Edge("ping", "done"),
		),
	)
}

func TestHandleDelayElapsed_ResumesPastDelayNode(t *testing.T) {
	fixture := newEngineFixture(t, flow.ResumeWins)
	definition := delayFlow()
	fixture.saveFlow(t, definition)

	ctx := context.Background()

	require.NoError(t, fixture.engine.ProcessInbound(ctx,
		testutil.InboundText("org-test", "contact-test", "remind")))

	conversation := fixture.conversation(t, "org-test", "contact-test")
	require.Equal(t, "wait", conversation.CurrentNodeID)
	require.NotNil(t, conversation.DelayUntil)

	err := fixture.engine.HandleDelayElapsed(ctx, &events.DelayElapsed{
		BaseEvent: events.BaseEvent{
			OrganizationID: "org-test",
			ContactID:      "contact-test",
		},
		FlowID:     definition.ID,
		NodeID:     "wait",
		Generation: conversation.Generation,
	})

	require.NoError(t, err)

	last := fixture.dispatcher.sent[len(fixture.dispatcher.sent)-1]
	assert.Equal(t, "Still there?", last.Text)

	conversation = fixture.conversation(t, "org-test", "contact-test")
	assert.False(t, conversation.HasSuspendedExecution())
	assert.Nil(t, conversation.DelayUntil)
}

func TestHandleDelayElapsed_DiscardsStaleGeneration(t *testing.T) {
	fixture := newEngineFixture(t, flow.ResumeWins)
	definition := delayFlow()
	fixture.saveFlow(t, definition)

	ctx := context.Background()

	require.NoError(t, fixture.engine.ProcessInbound(ctx,
		testutil.InboundText("org-test", "contact-test", "remind")))

	conversation := fixture.conversation(t, "org-test", "contact-test")
	sentBefore := len(fixture.dispatcher.sent)

	err := fixture.engine.HandleDelayElapsed(ctx, &events.DelayElapsed{
		BaseEvent: events.BaseEvent{
			OrganizationID: "org-test",
			ContactID:      "contact-test",
		},
		FlowID:     definition.ID,
		NodeID:     "wait",
		Generation: conversation.Generation + 7,
	})

	require.NoError(t, err)
	assert.Len(t, fixture.dispatcher.sent, sentBefore)

	unchanged := fixture.conversation(t, "org-test", "contact-test")
	assert.Equal(t, "wait", unchanged.CurrentNodeID)
}

func TestHandleDelayElapsed_UnknownConversationIsIgnored(t *testing.T) {
	fixture := newEngineFixture(t, flow.ResumeWins)

	err := fixture.engine.HandleDelayElapsed(context.Background(), &events.DelayElapsed{
		BaseEvent: events.BaseEvent{
			OrganizationID: "org-test",
			ContactID:      "ghost",
		},
		Generation: 0,
	})

	assert.NoError(t, err)
}

func TestResetConversation_BumpsGenerationAndReleases(t *testing.T) {
	fixture := newEngineFixture(t, flow.ResumeWins)
	fixture.saveFlow(t, delayFlow())

	ctx := context.Background()

	require.NoError(t, fixture.engine.ProcessInbound(ctx,
		testutil.InboundText("org-test", "contact-test", "remind")))

	before := fixture.conversation(t, "org-test", "contact-test")
	require.True(t, before.HasSuspendedExecution())

	err := fixture.engine.ResetConversation(ctx, "org-test", "contact-test", "operator@example.com")

	require.NoError(t, err)

	after := fixture.conversation(t, "org-test", "contact-test")
	assert.False(t, after.HasSuspendedExecution())
	assert.Equal(t, before.Generation+1, after.Generation)
	assert.Nil(t, after.DelayUntil)
}

func TestProcessInbound_DuringHandoffStaysWithHuman(t *testing.T) {
	fixture := newEngineFixture(t, flow.ResumeWins)
	fixture.saveFlow(t, handoffFlow())

	ctx := context.Background()

	require.NoError(t, fixture.engine.ProcessInbound(ctx,
		testutil.InboundText("org-test", "contact-test", "agent")))
	require.Len(t, fixture.humans.requests, 1)

	// The contact keeps typing while waiting for the agent. The message must
	// not re-run the handoff node or wake the execution.
	require.NoError(t, fixture.engine.ProcessInbound(ctx,
		testutil.InboundText("org-test", "contact-test", "anyone there?")))

	assert.Len(t, fixture.humans.requests, 1)

	conversation := fixture.conversation(t, "org-test", "contact-test")
	assert.Equal(t, "human", conversation.CurrentNodeID)
	assert.True(t, conversation.HasSuspendedExecution())
	require.NotNil(t, conversation.Window.WindowExpiresAt)

	// The agent signal still advances the flow.
	require.NoError(t, fixture.engine.ResumeFromHandoff(ctx, "org-test", "contact-test"))

	conversation = fixture.conversation(t, "org-test", "contact-test")
	assert.False(t, conversation.HasSuspendedExecution())
}

func TestProcessInbound_DuringDelayKeepsTimer(t *testing.T) {
	fixture := newEngineFixture(t, flow.ResumeWins)
	fixture.saveFlow(t, delayFlow())

	ctx := context.Background()

	require.NoError(t, fixture.engine.ProcessInbound(ctx,
		testutil.InboundText("org-test", "contact-test", "remind")))

	before := fixture.conversation(t, "org-test", "contact-test")
	require.NotNil(t, before.DelayUntil)
	scheduled := *before.DelayUntil

	require.NoError(t, fixture.engine.ProcessInbound(ctx,
		testutil.InboundText("org-test", "contact-test", "hello?")))

	after := fixture.conversation(t, "org-test", "contact-test")
	require.NotNil(t, after.DelayUntil)
	assert.True(t, scheduled.Equal(*after.DelayUntil), "chatty contact must not postpone the timer")
	assert.Equal(t, "wait", after.CurrentNodeID)

	timerPublishes := 0
	for _, call := range fixture.eventBus.Calls {
		if call.Method == "Publish" && call.Arguments.String(1) == events.TimerTopic {
			timerPublishes++
		}
	}

	assert.Equal(t, 1, timerPublishes)
}

func TestProcessInbound_ConcurrentMessagesMatchSerialOutcome(t *testing.T) {
	fixture := newEngineFixture(t, flow.ResumeWins)
	fixture.saveFlow(t, testutil.LinearFlow(testutil.WithKeywords("hello")))

	ctx := context.Background()

	const messages = 8

	errs := make([]error, messages)

	var wg sync.WaitGroup

	for i := range messages {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errs[i] = fixture.engine.ProcessInbound(ctx,
				testutil.InboundText("org-test", "contact-test", "hello"))
		}()
	}

	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	// Each message starts and completes one run, bumping the generation. A
	// lost update between racing cycles would flatten the count.
	conversation := fixture.conversation(t, "org-test", "contact-test")
	assert.Equal(t, int64(messages), conversation.Generation)
	assert.Len(t, fixture.dispatcher.sent, messages)
	assert.False(t, conversation.HasSuspendedExecution())
}

func handoffFlow() *models.Flow {
	return testutil.CreateTestFlow(
		testutil.WithKeywords("agent"),
		testutil.WithNodes(
			testutil.Node("start", models.NodeTypeStart, nil),
			testutil.Node("human", models.NodeTypeHandoff, nil),
			testutil.Node("bye", models.NodeTypeMessage, map[string]any{"text": "Glad we could help!"}),
			testutil.Node("done", models.NodeTypeEnd, nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "human"),
			testutil.Edge("human", "bye"),
			testutil.Edge("bye", "done"),
		),
	)
}

func TestResumeFromHandoff_AdvancesPastHandoffNode(t *testing.T) {
	fixture := newEngineFixture(t, flow.ResumeWins)
	fixture.saveFlow(t, handoffFlow())

	ctx := context.Background()

	require.NoError(t, fixture.engine.ProcessInbound(ctx,
		testutil.InboundText("org-test", "contact-test", "agent")))

	conversation := fixture.conversation(t, "org-test", "contact-test")
	require.Equal(t, "human", conversation.CurrentNodeID)

	err := fixture.engine.ResumeFromHandoff(ctx, "org-test", "contact-test")

	require.NoError(t, err)

	last := fixture.dispatcher.sent[len(fixture.dispatcher.sent)-1]
	assert.Equal(t, "Glad we could help!", last.Text)

	conversation = fixture.conversation(t, "org-test", "contact-test")
	assert.False(t, conversation.HasSuspendedExecution())
}
