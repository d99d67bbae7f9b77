// Package events defines event types for the conversation engine's lifecycle
// notifications.
package events

import (
	"time"

	"github.com/zapflow/zapflow/pkg/models"
)

type EventType string

// Kafka topics. Inbound and timer topics are partitioned by conversation key
// so events for one conversation are consumed in delivery order.
const InboundTopic = "zapflow.messages.inbound"
const TimerTopic = "zapflow.timers"
const EngineTopic = "zapflow.engine.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Inbound side.
	InboundReceivedEvent EventType = "message.inbound.received"

	// Execution lifecycle.
	FlowStartedEvent    EventType = "flow.execution.started"
	FlowResumedEvent    EventType = "flow.execution.resumed"
	FlowSuspendedEvent  EventType = "flow.execution.suspended"
	FlowCompletedEvent  EventType = "flow.execution.completed"
	FlowFaultedEvent    EventType = "flow.execution.faulted"
	OutboundRequestedEvent EventType = "message.outbound.requested"
	OutboundBlockedEvent   EventType = "message.outbound.blocked"
	HandoffRequestedEvent  EventType = "conversation.handoff.requested"

	// Timer side.
	DelayScheduledEvent EventType = "delay.scheduled"
	DelayElapsedEvent   EventType = "delay.elapsed"

	// Operator commands and publishing.
	ConversationResetEvent EventType = "conversation.reset"
	FlowPublishedEvent     EventType = "flow.published"
)

type BaseEvent struct {
	ID             string         `json:"id"`
	Type           EventType      `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	OrganizationID string         `json:"organization_id"`
	ContactID      string         `json:"contact_id,omitempty"`
	WorkerID       string         `json:"worker_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ConversationKey returns the partition key guaranteeing per-conversation
// ordering on the bus.
func (b BaseEvent) ConversationKey() string {
	return b.OrganizationID + ":" + b.ContactID
}

// InboundReceived wraps one provider webhook event placed on the bus by the
// ingestion API.
type InboundReceived struct {
	BaseEvent

	Message models.InboundMessage `json:"message"`
}

func (e InboundReceived) GetType() EventType {
	return InboundReceivedEvent
}

type FlowStarted struct {
	BaseEvent

	FlowID      string `json:"flow_id"`
	FlowVersion int    `json:"flow_version"`
	Generation  int64  `json:"generation"`
	Trigger     string `json:"trigger"` // keyword | universal | resume
}

func (e FlowStarted) GetType() EventType {
	return FlowStartedEvent
}

type FlowResumed struct {
	BaseEvent

	FlowID     string `json:"flow_id"`
	NodeID     string `json:"node_id"`
	Generation int64  `json:"generation"`
}

func (e FlowResumed) GetType() EventType {
	return FlowResumedEvent
}

type FlowSuspended struct {
	BaseEvent

	FlowID     string `json:"flow_id"`
	NodeID     string `json:"node_id"`
	Generation int64  `json:"generation"`
	Reason     string `json:"reason"` // question | handoff | delay | fault
}

func (e FlowSuspended) GetType() EventType {
	return FlowSuspendedEvent
}

type FlowCompleted struct {
	BaseEvent

	FlowID     string        `json:"flow_id"`
	Generation int64         `json:"generation"`
	Steps      int           `json:"steps"`
	Duration   time.Duration `json:"duration"`
}

func (e FlowCompleted) GetType() EventType {
	return FlowCompletedEvent
}

type FlowFaulted struct {
	BaseEvent

	FlowID     string `json:"flow_id"`
	NodeID     string `json:"node_id"`
	Generation int64  `json:"generation"`
	Error      string `json:"error"`
}

func (e FlowFaulted) GetType() EventType {
	return FlowFaultedEvent
}

type OutboundRequested struct {
	BaseEvent

	Message models.OutboundMessage `json:"message"`
}

func (e OutboundRequested) GetType() EventType {
	return OutboundRequestedEvent
}

// OutboundBlocked is emitted when the window guard forbids a free-form send
// and the node has no template fallback. The message stays queued in the
// conversation state for manual resolution.
type OutboundBlocked struct {
	BaseEvent

	NodeID string `json:"node_id"`
}

func (e OutboundBlocked) GetType() EventType {
	return OutboundBlockedEvent
}

// HandoffRequested notifies the agent tooling that a conversation is waiting
// for a human.
type HandoffRequested struct {
	BaseEvent

	Queue          string         `json:"queue,omitempty"`
	ContextSummary map[string]any `json:"context_summary,omitempty"`
}

func (e HandoffRequested) GetType() EventType {
	return HandoffRequestedEvent
}

type DelayScheduled struct {
	BaseEvent

	FlowID     string    `json:"flow_id"`
	NodeID     string    `json:"node_id"`
	Generation int64     `json:"generation"`
	ResumeAt   time.Time `json:"resume_at"`
}

func (e DelayScheduled) GetType() EventType {
	return DelayScheduledEvent
}

// DelayElapsed resumes a delay-suspended execution. The engine discards it
// when Generation no longer matches the conversation's current generation.
type DelayElapsed struct {
	BaseEvent

	FlowID     string `json:"flow_id"`
	NodeID     string `json:"node_id"`
	Generation int64  `json:"generation"`
}

func (e DelayElapsed) GetType() EventType {
	return DelayElapsedEvent
}

type ConversationReset struct {
	BaseEvent

	RequestedBy string `json:"requested_by"`
	Generation  int64  `json:"generation"`
}

func (e ConversationReset) GetType() EventType {
	return ConversationResetEvent
}

type FlowPublished struct {
	BaseEvent

	FlowID      string `json:"flow_id"`
	FlowVersion int    `json:"flow_version"`
}

func (e FlowPublished) GetType() EventType {
	return FlowPublishedEvent
}
