package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zapflow/zapflow/pkg/eventbus"
	"github.com/zapflow/zapflow/pkg/events"
	"github.com/zapflow/zapflow/pkg/flow"
	"github.com/zapflow/zapflow/pkg/locks"
	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/persistence"
	"github.com/zapflow/zapflow/pkg/window"
)

// lockTTL bounds how long a crashed worker can wedge a conversation.
const lockTTL = 30 * time.Second

// Engine orchestrates one conversation cycle: lock, window accounting,
// trigger resolution, node stepping, persistence, lifecycle events. Exactly
// one cycle runs per conversation at a time.
type Engine struct {
	persistence persistence.Persistence
	catalog     FlowCatalog
	executor    *flow.Executor
	resolver    *flow.Resolver
	eventBus    eventbus.EventBus
	locker      locks.Locker
	policy      flow.OverridePolicy
	workerID    string
	logger      *slog.Logger
}

// NewEngine creates the conversation engine service. A nil catalog falls back
// to uncached repository reads.
func NewEngine(
	p persistence.Persistence,
	catalog FlowCatalog,
	executor *flow.Executor,
	resolver *flow.Resolver,
	eventBus eventbus.EventBus,
	locker locks.Locker,
	policy flow.OverridePolicy,
	workerID string,
	logger *slog.Logger,
) *Engine {
	if policy == "" {
		policy = flow.ResumeWins
	}

	if catalog == nil {
		catalog = p.FlowRepository()
	}

	return &Engine{
		persistence: p,
		catalog:     catalog,
		executor:    executor,
		resolver:    resolver,
		eventBus:    eventBus,
		locker:      locker,
		policy:      policy,
		workerID:    workerID,
		logger:      logger.With("module", "engine"),
	}
}

// ProcessInbound handles one inbound message end to end. The window opens
// unconditionally; what happens next is the resolver's decision. Errors that
// are part of normal flow semantics (faults, blocked sends) are absorbed
// after persisting, so the bus does not redeliver the message.
func (e *Engine) ProcessInbound(ctx context.Context, msg *models.InboundMessage) error {
	now := msg.ReceivedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	key := locks.ConversationKey(msg.OrganizationID, msg.ContactID)

	release, err := e.locker.Acquire(ctx, key, lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire conversation lock: %w", err)
	}
	defer func() { _ = release(context.WithoutCancel(ctx)) }()

	conversation, err := e.loadOrCreate(ctx, msg.OrganizationID, msg.ContactID, now)
	if err != nil {
		return err
	}

	// Every inbound message opens or extends the window, even when nothing
	// else happens.
	conversation.Window = window.RecordInbound(conversation.Window, now)
	conversation.UpdatedAt = now

	if conversation.Faulted {
		e.logger.Warn("Inbound message for faulted conversation, ignoring",
			"organization_id", msg.OrganizationID, "contact_id", msg.ContactID,
			"fault_reason", conversation.FaultReason)

		return e.save(ctx, conversation)
	}

	flows, err := e.catalog.PublishedFlows(ctx, msg.OrganizationID)
	if err != nil {
		return fmt.Errorf("failed to load published flows: %w", err)
	}

	resolution := e.resolver.Resolve(conversation, flows, msg.Text, e.policy)

	switch resolution.Kind {
	case flow.ResolutionNoOp:
		return e.save(ctx, conversation)

	case flow.ResolutionResume:
		return e.resume(ctx, conversation, msg, now)

	case flow.ResolutionKeyword, flow.ResolutionUniversal:
		return e.start(ctx, conversation, resolution, now)

	default:
		return fmt.Errorf("unknown resolution kind %q", resolution.Kind)
	}
}

// resume feeds the inbound message to the suspended node as its answer. Only
// input-awaiting suspensions (question, interactive menus) are woken this way;
// handoff and delay suspensions wait for their external signal and the
// message merely keeps the window open.
func (e *Engine) resume(ctx context.Context, conversation *models.Conversation, msg *models.InboundMessage, now time.Time) error {
	definition, err := e.persistence.FlowRepository().FlowVersion(ctx,
		conversation.ActiveFlowID, conversation.ActiveFlowVersion)
	if err != nil {
		// The pinned version is gone. Nothing to resume; release the
		// conversation instead of wedging it.
		e.logger.Error("Pinned flow version missing, resetting conversation",
			"flow_id", conversation.ActiveFlowID,
			"flow_version", conversation.ActiveFlowVersion,
			"error", err)
		conversation.Reset(now)

		return e.save(ctx, conversation)
	}

	graph := flow.Compile(definition)

	node := graph.Node(conversation.CurrentNodeID)
	if conversation.DelayUntil != nil || (node != nil && node.Type == models.NodeTypeHandoff) {
		e.logger.Info("Holding inbound message for externally suspended conversation",
			"organization_id", conversation.OrganizationID,
			"contact_id", conversation.ContactID,
			"node_id", conversation.CurrentNodeID)

		return e.save(ctx, conversation)
	}

	e.publish(ctx, events.EngineTopic, events.FlowResumed{
		BaseEvent:  e.base(events.FlowResumedEvent, conversation.OrganizationID, conversation.ContactID, now),
		FlowID:     conversation.ActiveFlowID,
		NodeID:     conversation.CurrentNodeID,
		Generation: conversation.Generation,
	})

	report, runErr := e.executor.Run(ctx, graph, conversation, conversation.CurrentNodeID, msg, now)

	return e.finish(ctx, conversation, report, runErr, now)
}

// start begins a fresh execution from the resolved flow's start node. The
// trigger message is consumed by resolution itself, not by the first node.
func (e *Engine) start(ctx context.Context, conversation *models.Conversation, resolution flow.Resolution, now time.Time) error {
	// A keyword override abandons the suspended execution first.
	if conversation.HasSuspendedExecution() {
		conversation.Reset(now)
	}

	definition := resolution.Flow

	startNode := definition.StartNode()
	if startNode == nil {
		return fmt.Errorf("flow %s: %w", definition.ID, flow.ErrNoStartNode)
	}

	conversation.ActiveFlowID = definition.ID
	conversation.ActiveFlowVersion = definition.Version

	e.publish(ctx, events.EngineTopic, events.FlowStarted{
		BaseEvent:   e.base(events.FlowStartedEvent, conversation.OrganizationID, conversation.ContactID, now),
		FlowID:      definition.ID,
		FlowVersion: definition.Version,
		Generation:  conversation.Generation,
		Trigger:     string(resolution.Kind),
	})

	graph := flow.Compile(definition)
	report, runErr := e.executor.Run(ctx, graph, conversation, startNode.ID, nil, now)

	return e.finish(ctx, conversation, report, runErr, now)
}

// HandleDelayElapsed resumes a delay-suspended execution from the timer
// signal. A signal whose generation no longer matches the conversation's is
// stale (the delayed run completed or was reset meanwhile) and is discarded.
func (e *Engine) HandleDelayElapsed(ctx context.Context, event *events.DelayElapsed) error {
	now := time.Now().UTC()
	key := locks.ConversationKey(event.OrganizationID, event.ContactID)

	release, err := e.locker.Acquire(ctx, key, lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire conversation lock: %w", err)
	}
	defer func() { _ = release(context.WithoutCancel(ctx)) }()

	conversation, err := e.persistence.ConversationRepository().Conversation(ctx,
		event.OrganizationID, event.ContactID)
	if err != nil {
		if persistence.IsConversationNotFound(err) {
			return nil
		}

		return fmt.Errorf("failed to load conversation: %w", err)
	}

	if event.Generation != conversation.Generation {
		e.logger.Info("Discarding stale delay signal",
			"organization_id", event.OrganizationID, "contact_id", event.ContactID,
			"signal_generation", event.Generation, "generation", conversation.Generation)

		return nil
	}

	if !conversation.HasSuspendedExecution() || conversation.DelayUntil == nil {
		return nil
	}

	definition, err := e.persistence.FlowRepository().FlowVersion(ctx,
		conversation.ActiveFlowID, conversation.ActiveFlowVersion)
	if err != nil {
		return fmt.Errorf("failed to load pinned flow version: %w", err)
	}

	graph := flow.Compile(definition)

	// The delay is served; the execution continues at the node after it.
	conversation.DelayUntil = nil
	conversation.UpdatedAt = now

	edge, ok := graph.Next(conversation.CurrentNodeID, "")
	if !ok {
		conversation.Reset(now)

		return e.save(ctx, conversation)
	}

	e.publish(ctx, events.EngineTopic, events.FlowResumed{
		BaseEvent:  e.base(events.FlowResumedEvent, conversation.OrganizationID, conversation.ContactID, now),
		FlowID:     conversation.ActiveFlowID,
		NodeID:     edge.TargetID,
		Generation: conversation.Generation,
	})

	report, runErr := e.executor.Run(ctx, graph, conversation, edge.TargetID, nil, now)

	return e.finish(ctx, conversation, report, runErr, now)
}

// ResumeFromHandoff continues a conversation a human agent has finished with.
// The resume signal comes from agent tooling through the API, never from an
// inbound message.
func (e *Engine) ResumeFromHandoff(ctx context.Context, organizationID, contactID string) error {
	now := time.Now().UTC()
	key := locks.ConversationKey(organizationID, contactID)

	release, err := e.locker.Acquire(ctx, key, lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire conversation lock: %w", err)
	}
	defer func() { _ = release(context.WithoutCancel(ctx)) }()

	conversation, err := e.persistence.ConversationRepository().Conversation(ctx, organizationID, contactID)
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}

	if !conversation.HasSuspendedExecution() {
		return nil
	}

	definition, err := e.persistence.FlowRepository().FlowVersion(ctx,
		conversation.ActiveFlowID, conversation.ActiveFlowVersion)
	if err != nil {
		return fmt.Errorf("failed to load pinned flow version: %w", err)
	}

	graph := flow.Compile(definition)
	conversation.UpdatedAt = now

	node := graph.Node(conversation.CurrentNodeID)
	if node == nil || node.Type != models.NodeTypeHandoff {
		return fmt.Errorf("conversation is not suspended on a handoff node")
	}

	edge, ok := graph.Next(conversation.CurrentNodeID, "")
	if !ok {
		conversation.Reset(now)

		return e.save(ctx, conversation)
	}

	report, runErr := e.executor.Run(ctx, graph, conversation, edge.TargetID, nil, now)

	return e.finish(ctx, conversation, report, runErr, now)
}

// ResetConversation is the operator command that abandons whatever is running
// and releases the conversation. The generation bump makes any in-flight
// timer signal for the old run stale.
func (e *Engine) ResetConversation(ctx context.Context, organizationID, contactID, requestedBy string) error {
	now := time.Now().UTC()
	key := locks.ConversationKey(organizationID, contactID)

	release, err := e.locker.Acquire(ctx, key, lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire conversation lock: %w", err)
	}
	defer func() { _ = release(context.WithoutCancel(ctx)) }()

	conversation, err := e.persistence.ConversationRepository().Conversation(ctx, organizationID, contactID)
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}

	conversation.Reset(now)

	err = e.save(ctx, conversation)
	if err != nil {
		return err
	}

	e.publish(ctx, events.EngineTopic, events.ConversationReset{
		BaseEvent:   e.base(events.ConversationResetEvent, organizationID, contactID, now),
		RequestedBy: requestedBy,
		Generation:  conversation.Generation,
	})

	return nil
}

// finish persists the cycle outcome and emits the matching lifecycle event.
func (e *Engine) finish(ctx context.Context, conversation *models.Conversation, report *flow.RunReport, runErr error, now time.Time) error {
	err := e.save(ctx, conversation)
	if err != nil {
		return err
	}

	base := func(t events.EventType) events.BaseEvent {
		return e.base(t, conversation.OrganizationID, conversation.ContactID, now)
	}

	switch {
	case runErr == nil && report.State == flow.RunCompleted:
		e.publish(ctx, events.EngineTopic, events.FlowCompleted{
			BaseEvent:  base(events.FlowCompletedEvent),
			FlowID:     conversation.ActiveFlowID,
			Generation: conversation.Generation,
			Steps:      report.Steps,
		})

	case runErr == nil && report.State == flow.RunSuspended:
		e.publish(ctx, events.EngineTopic, events.FlowSuspended{
			BaseEvent:  base(events.FlowSuspendedEvent),
			FlowID:     conversation.ActiveFlowID,
			NodeID:     report.SuspendedNode,
			Generation: conversation.Generation,
			Reason:     report.SuspendReason,
		})

		if conversation.DelayUntil != nil {
			e.publish(ctx, events.TimerTopic, events.DelayScheduled{
				BaseEvent:  base(events.DelayScheduledEvent),
				FlowID:     conversation.ActiveFlowID,
				NodeID:     report.SuspendedNode,
				Generation: conversation.Generation,
				ResumeAt:   *conversation.DelayUntil,
			})
		}

	case flow.IsOutboundBlocked(runErr):
		var blocked *flow.OutboundBlockedError

		errors.As(runErr, &blocked)
		e.logger.Warn("Outbound message blocked by closed window",
			"organization_id", conversation.OrganizationID,
			"contact_id", conversation.ContactID,
			"node_id", blocked.NodeID)
		e.publish(ctx, events.EngineTopic, events.OutboundBlocked{
			BaseEvent: base(events.OutboundBlockedEvent),
			NodeID:    blocked.NodeID,
		})

	case flow.IsNodeFault(runErr):
		var fault *flow.NodeFault

		errors.As(runErr, &fault)
		e.logger.Error("Flow execution faulted",
			"organization_id", conversation.OrganizationID,
			"contact_id", conversation.ContactID,
			"flow_id", fault.FlowID, "node_id", fault.NodeID, "error", fault.Err)
		e.publish(ctx, events.EngineTopic, events.FlowFaulted{
			BaseEvent:  base(events.FlowFaultedEvent),
			FlowID:     fault.FlowID,
			NodeID:     fault.NodeID,
			Generation: conversation.Generation,
			Error:      fault.Err.Error(),
		})

	case runErr != nil:
		return runErr
	}

	return nil
}

func (e *Engine) loadOrCreate(ctx context.Context, organizationID, contactID string, now time.Time) (*models.Conversation, error) {
	conversation, err := e.persistence.ConversationRepository().Conversation(ctx, organizationID, contactID)
	if err != nil {
		if persistence.IsConversationNotFound(err) {
			return models.NewConversation(organizationID, contactID, now), nil
		}

		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	return conversation, nil
}

func (e *Engine) save(ctx context.Context, conversation *models.Conversation) error {
	err := e.persistence.ConversationRepository().SaveConversation(ctx, conversation)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	return nil
}

func (e *Engine) base(eventType events.EventType, organizationID, contactID string, now time.Time) events.BaseEvent {
	return events.BaseEvent{
		ID:             e.eventBus.GenerateID(),
		Type:           eventType,
		Timestamp:      now,
		OrganizationID: organizationID,
		ContactID:      contactID,
		WorkerID:       e.workerID,
	}
}

func (e *Engine) publish(ctx context.Context, topic string, event eventbus.Event) {
	var key string
	if keyed, ok := event.(interface{ ConversationKey() string }); ok {
		key = keyed.ConversationKey()
	}

	err := e.eventBus.Publish(ctx, topic, key, event)
	if err != nil {
		e.logger.Error("Failed to publish lifecycle event",
			"event_type", event.GetType(), "error", err)
	}
}
