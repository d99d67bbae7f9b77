// Package models defines node and edge models for flow graph execution.
package models

// Built-in node types. Every published flow is composed of these variants;
// unknown types are rejected at publish time.
const (
	NodeTypeStart              = "start"
	NodeTypeMessage            = "message"
	NodeTypeQuestion           = "question"
	NodeTypeCondition          = "condition"
	NodeTypeAPICall            = "api_call"
	NodeTypeDatabaseQuery      = "database_query"
	NodeTypeScript             = "script"
	NodeTypeDelay              = "delay"
	NodeTypeRandom             = "random"
	NodeTypeSetVariable        = "set_variable"
	NodeTypeHandoff            = "handoff"
	NodeTypeJump               = "jump"
	NodeTypeWhatsAppTemplate   = "whatsapp_template"
	NodeTypeInteractiveButtons = "interactive_buttons"
	NodeTypeInteractiveList    = "interactive_list"
	NodeTypeEnd                = "end"
)

// Well-known edge labels. Unlabeled edges are followed when a node completes
// without selecting a branch.
const (
	EdgeLabelDefault   = "default"
	EdgeLabelOnInvalid = "on_invalid"
	EdgeLabelOnFault   = "on_fault"
	EdgeLabelTimeout   = "timeout"
)

// FlowNode represents a node instance in a flow graph. Config carries the
// variant-specific configuration validated against the node type's schema.
type FlowNode struct {
	ID        string         `json:"id"   validate:"required"`
	Type      string         `json:"type" validate:"required"`
	Name      string         `json:"name"`
	Config    map[string]any `json:"config"`
	PositionX int            `json:"position_x"`
	PositionY int            `json:"position_y"`
}

// Edge is a directed connection between two nodes. Label selects the branch
// for branch-producing nodes (condition, random, question on_invalid, ...);
// an empty label is the unconditional next edge.
type Edge struct {
	ID       string  `json:"id"`
	SourceID string  `json:"source_id" validate:"required"`
	TargetID string  `json:"target_id" validate:"required"`
	Label    string  `json:"label,omitempty"`
	Weight   float64 `json:"weight,omitempty"` // Used by random nodes only
}

// StepOutcome is what a node execution tells the executor to do next.
type StepOutcome string

const (
	// OutcomeContinue advances to the next node along the selected branch.
	OutcomeContinue StepOutcome = "continue"
	// OutcomeSuspend parks the execution on the current node awaiting external
	// input (user reply, human agent, timer).
	OutcomeSuspend StepOutcome = "suspend"
	// OutcomeTerminate ends the execution and releases the conversation.
	OutcomeTerminate StepOutcome = "terminate"
)

// StepResult is the outcome of executing a single node.
type StepResult struct {
	Outcome StepOutcome `json:"outcome"`

	// Branch selects the labeled outgoing edge to follow on OutcomeContinue.
	// Empty means the unlabeled next edge.
	Branch string `json:"branch,omitempty"`

	// Bindings are variable assignments to merge into the conversation state.
	Bindings map[string]any `json:"bindings,omitempty"`

	// Outbound are send requests produced by this step. The executor gates
	// them through the window guard before handing them to the dispatcher.
	Outbound []*OutboundMessage `json:"outbound,omitempty"`

	// ResumeAt is set by delay nodes: the earliest instant an external timer
	// signal may resume this execution, as a Unix timestamp.
	ResumeAt *int64 `json:"resume_at,omitempty"`

	// InvalidReply marks a question reply that failed validation. The executor
	// increments the conversation's prompt attempt counter instead of
	// resetting it.
	InvalidReply bool `json:"invalid_reply,omitempty"`

	// JumpToFlowID and JumpToNodeID transfer execution to another flow. An
	// empty JumpToNodeID means the target flow's start node.
	JumpToFlowID string `json:"jump_to_flow_id,omitempty"`
	JumpToNodeID string `json:"jump_to_node_id,omitempty"`
}

// ContinueTo returns a StepResult advancing along the given branch label.
func ContinueTo(branch string) *StepResult {
	return &StepResult{Outcome: OutcomeContinue, Branch: branch}
}

// Continue returns a StepResult advancing along the unlabeled next edge.
func Continue() *StepResult {
	return &StepResult{Outcome: OutcomeContinue}
}

// Suspend returns a StepResult parking the execution on the current node.
func Suspend() *StepResult {
	return &StepResult{Outcome: OutcomeSuspend}
}

// Terminate returns a StepResult ending the execution.
func Terminate() *StepResult {
	return &StepResult{Outcome: OutcomeTerminate}
}
