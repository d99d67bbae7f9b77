package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
	"github.com/zapflow/zapflow/pkg/window"
)

// MaxStepsPerCycle is the hard step budget for one inbound-message handling
// cycle. Exceeding it means the graph cycles without reaching a suspension or
// an end node; the execution faults instead of looping forever.
const MaxStepsPerCycle = 100

// NodeProvider creates executable node instances by type. Implemented by the
// node registry.
type NodeProvider interface {
	CreateNode(ctx context.Context, nodeType, id string, config map[string]any) (protocol.Node, error)
}

// FlowLoader resolves jump-node targets to their current published
// definition.
type FlowLoader interface {
	FlowByID(ctx context.Context, id string) (*models.Flow, error)
}

// RunState summarizes how a node-stepping cycle ended.
type RunState string

const (
	RunCompleted RunState = "completed"
	RunSuspended RunState = "suspended"
	RunFaulted   RunState = "faulted"
	RunBlocked   RunState = "blocked"
)

// RunReport describes one executor cycle for logging and eventing.
type RunReport struct {
	State         RunState
	Steps         int
	Outbound      int
	SuspendedNode string
	SuspendReason string
}

// Executor drives a conversation's flow execution: it steps nodes until the
// flow suspends, terminates or faults. It is the only component that mutates
// a conversation's execution pointer; the caller holds the per-conversation
// lock and persists the state exactly once per cycle.
type Executor struct {
	nodes      NodeProvider
	flows      FlowLoader
	dispatcher protocol.Dispatcher
	logger     *slog.Logger
}

// NewExecutor creates a flow executor.
func NewExecutor(nodes NodeProvider, flows FlowLoader, dispatcher protocol.Dispatcher, logger *slog.Logger) *Executor {
	return &Executor{
		nodes:      nodes,
		flows:      flows,
		dispatcher: dispatcher,
		logger:     logger.With("module", "flow_executor"),
	}
}

// Run steps the flow from startNodeID until it suspends, terminates or
// faults. reply is the inbound message being treated as the answer to a
// suspended node; it is consumed by the first node executed. The conversation
// is mutated in place and must be persisted by the caller in the same logical
// transaction as the triggering message.
func (e *Executor) Run(
	ctx context.Context,
	graph *Graph,
	conversation *models.Conversation,
	startNodeID string,
	reply *models.InboundMessage,
	now time.Time,
) (*RunReport, error) {
	report := &RunReport{}
	nodeID := startNodeID

	logger := e.logger.With(
		"organization_id", conversation.OrganizationID,
		"contact_id", conversation.ContactID,
		"flow_id", graph.Flow().ID,
		"flow_version", graph.Flow().Version,
		"generation", conversation.Generation,
	)

	for {
		report.Steps++
		if report.Steps > MaxStepsPerCycle {
			logger.Error("Step budget exceeded, flow graph likely cycles without an end node",
				"node_id", nodeID, "budget", MaxStepsPerCycle)

			return e.fault(conversation, graph, nodeID, now, report, ErrStepBudgetExceeded)
		}

		node := graph.Node(nodeID)
		if node == nil {
			return e.fault(conversation, graph, nodeID, now, report,
				fmt.Errorf("node %s not found in flow %s", nodeID, graph.Flow().ID))
		}

		// Crash recovery re-derives from the last persisted node ID.
		conversation.CurrentNodeID = nodeID

		if node.Type == models.NodeTypeStart {
			edge, ok := graph.Next(nodeID, "")
			if !ok {
				return e.complete(conversation, now, report), nil
			}

			nodeID = edge.TargetID

			continue
		}

		result, err := e.executeNode(ctx, graph, conversation, node, reply, now, report.Steps)
		if err != nil {
			if edge, ok := graph.Next(nodeID, models.EdgeLabelOnFault); ok {
				logger.Warn("Node faulted, routing to on_fault edge",
					"node_id", nodeID, "error", err)

				reply = nil
				nodeID = edge.TargetID

				continue
			}

			logger.Error("Node execution faulted", "node_id", nodeID, "error", err)

			return e.fault(conversation, graph, nodeID, now, report, err)
		}

		for name, value := range result.Bindings {
			conversation.SetBinding(name, value)
		}

		blocked, err := e.sendOutbound(ctx, conversation, node, result, now, report)
		if blocked != nil {
			conversation.SuspendedSince = &now
			report.State = RunBlocked

			return report, blocked
		}

		if err != nil {
			return e.fault(conversation, graph, nodeID, now, report, err)
		}

		// The inbound answer belongs to the first node that saw it.
		reply = nil

		switch result.Outcome {
		case models.OutcomeSuspend:
			return e.suspend(conversation, node, result, now, report), nil

		case models.OutcomeTerminate:
			return e.complete(conversation, now, report), nil

		case models.OutcomeContinue:
			conversation.PromptAttempts = 0
			conversation.DelayUntil = nil

			if result.JumpToFlowID != "" {
				target, targetNodeID, err := e.jump(ctx, conversation, result)
				if err != nil {
					return e.fault(conversation, graph, nodeID, now, report, err)
				}

				graph, nodeID = target, targetNodeID

				logger.Info("Jumped to flow", "target_flow_id", conversation.ActiveFlowID,
					"target_node_id", nodeID)

				continue
			}

			edge, ok := graph.Next(nodeID, result.Branch)
			if !ok {
				if result.Branch == "" {
					// Node finished with no next edge: the path ends here.
					return e.complete(conversation, now, report), nil
				}

				return e.fault(conversation, graph, nodeID, now, report,
					fmt.Errorf("no edge for branch %q from node %s", result.Branch, nodeID))
			}

			nodeID = edge.TargetID

		default:
			return e.fault(conversation, graph, nodeID, now, report,
				fmt.Errorf("node %s returned unknown outcome %q", nodeID, result.Outcome))
		}
	}
}

func (e *Executor) executeNode(
	ctx context.Context,
	graph *Graph,
	conversation *models.Conversation,
	node *models.FlowNode,
	reply *models.InboundMessage,
	now time.Time,
	step int,
) (*models.StepResult, error) {
	instance, err := e.nodes.CreateNode(ctx, node.Type, node.ID, node.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create node %s (%s): %w", node.ID, node.Type, err)
	}

	ec := models.ExecutionContext{
		OrganizationID: conversation.OrganizationID,
		ContactID:      conversation.ContactID,
		FlowID:         graph.Flow().ID,
		FlowVersion:    graph.Flow().Version,
		Generation:     conversation.Generation,
		Variables:      conversation.Bindings,
		Step:           step,
		Reply:          reply,
		PromptAttempts: conversation.PromptAttempts,
		Branches:       graph.Branches(node.ID),
		BranchWeights:  graph.BranchWeights(node.ID),
		Verdict:        window.Evaluate(conversation.Window, now),
		Now:            now,
	}

	result, err := instance.Execute(ctx, ec)
	if err != nil {
		return nil, err
	}

	if result == nil {
		return nil, fmt.Errorf("node %s returned no result", node.ID)
	}

	return result, nil
}

// sendOutbound gates each send through the window guard and hands it to the
// dispatcher. Templates are always sendable by provider rule; a free-form
// send outside the window with no template fallback is blocked and queued,
// never dropped.
func (e *Executor) sendOutbound(
	ctx context.Context,
	conversation *models.Conversation,
	node *models.FlowNode,
	result *models.StepResult,
	now time.Time,
	report *RunReport,
) (*OutboundBlockedError, error) {
	verdict := window.Evaluate(conversation.Window, now)

	for _, msg := range result.Outbound {
		msg.OrganizationID = conversation.OrganizationID
		msg.ContactID = conversation.ContactID
		msg.NodeID = node.ID
		msg.CreatedAt = now
		msg.Verdict = verdict

		if !msg.IsTemplate() && verdict == models.TemplateRequired {
			conversation.Blocked = append(conversation.Blocked, msg)

			return &OutboundBlockedError{
				OrganizationID: conversation.OrganizationID,
				ContactID:      conversation.ContactID,
				NodeID:         node.ID,
			}, nil
		}

		err := e.dispatcher.Dispatch(ctx, msg)
		if err != nil {
			return nil, fmt.Errorf("failed to dispatch outbound message: %w", err)
		}

		report.Outbound++
	}

	return nil, nil
}

func (e *Executor) suspend(
	conversation *models.Conversation,
	node *models.FlowNode,
	result *models.StepResult,
	now time.Time,
	report *RunReport,
) *RunReport {
	conversation.CurrentNodeID = node.ID
	conversation.SuspendedSince = &now

	if result.InvalidReply {
		conversation.PromptAttempts++
	} else {
		conversation.PromptAttempts = 0
	}

	if result.ResumeAt != nil {
		resumeAt := time.Unix(*result.ResumeAt, 0).UTC()
		conversation.DelayUntil = &resumeAt
		report.SuspendReason = "delay"
	} else {
		conversation.DelayUntil = nil
		report.SuspendReason = node.Type
	}

	report.State = RunSuspended
	report.SuspendedNode = node.ID

	return report
}

func (e *Executor) complete(conversation *models.Conversation, now time.Time, report *RunReport) *RunReport {
	conversation.Reset(now)
	report.State = RunCompleted

	return report
}

func (e *Executor) fault(
	conversation *models.Conversation,
	graph *Graph,
	nodeID string,
	now time.Time,
	report *RunReport,
	err error,
) (*RunReport, error) {
	conversation.Faulted = true
	conversation.FaultReason = err.Error()
	conversation.CurrentNodeID = nodeID
	conversation.SuspendedSince = &now
	conversation.DelayUntil = nil

	report.State = RunFaulted
	report.SuspendedNode = nodeID
	report.SuspendReason = "fault"

	return report, &NodeFault{FlowID: graph.Flow().ID, NodeID: nodeID, Err: err}
}

// jump transfers the execution to another flow's published definition and
// re-pins the conversation to its version.
func (e *Executor) jump(ctx context.Context, conversation *models.Conversation, result *models.StepResult) (*Graph, string, error) {
	target, err := e.flows.FlowByID(ctx, result.JumpToFlowID)
	if err != nil {
		return nil, result.JumpToNodeID, fmt.Errorf("failed to load jump target flow %s: %w", result.JumpToFlowID, err)
	}

	graph := Compile(target)

	nodeID := result.JumpToNodeID
	if nodeID == "" {
		start := target.StartNode()
		if start == nil {
			return graph, "", fmt.Errorf("jump target flow %s: %w", target.ID, ErrNoStartNode)
		}

		nodeID = start.ID
	}

	conversation.ActiveFlowID = target.ID
	conversation.ActiveFlowVersion = target.Version

	return graph, nodeID, nil
}
