// Package models defines conversation execution state for the flow engine.
package models

import "time"

// Conversation is the durable per-(organization, contact) execution record.
// It is created on the first inbound message from a contact and mutated
// exclusively by the flow executor, one logical transaction per inbound
// message. It is never deleted, only reset.
type Conversation struct {
	OrganizationID string `json:"organization_id" validate:"required"`
	ContactID      string `json:"contact_id"      validate:"required"`

	// Active execution pointer. An empty CurrentNodeID means no flow is
	// running and the next inbound message goes through trigger resolution.
	ActiveFlowID      string `json:"active_flow_id,omitempty"`
	ActiveFlowVersion int    `json:"active_flow_version,omitempty"`
	CurrentNodeID     string `json:"current_node_id,omitempty"`

	// Bindings are the variables collected by question and set_variable nodes.
	// Schema-less beyond string keys and scalar values.
	Bindings map[string]any `json:"bindings,omitempty"`

	// Generation distinguishes successive, non-overlapping runs against this
	// conversation. It is incremented whenever an execution completes or the
	// conversation is reset, so stale resume signals can be discarded.
	Generation int64 `json:"generation"`

	SuspendedSince *time.Time `json:"suspended_since,omitempty"`

	// DelayUntil is set while a delay node is pending; the timer sweeper
	// resumes the execution once it is due.
	DelayUntil *time.Time `json:"delay_until,omitempty"`

	// PromptAttempts counts consecutive invalid replies to the suspended
	// question node.
	PromptAttempts int `json:"prompt_attempts,omitempty"`

	// Faulted marks an execution that hit a runtime fault (step budget
	// exceeded, unmatched condition, external call failure without an
	// on_fault edge). Faulted conversations stay suspended until an operator
	// intervenes.
	Faulted     bool   `json:"faulted,omitempty"`
	FaultReason string `json:"fault_reason,omitempty"`

	// Blocked holds outbound messages the window guard refused to send
	// free-form with no template fallback. They are kept for manual
	// resolution, never dropped.
	Blocked []*OutboundMessage `json:"blocked,omitempty"`

	Window WindowState `json:"window"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WindowState tracks the provider's 24-hour free-messaging window for a
// contact.
type WindowState struct {
	// WindowExpiresAt is last_inbound_at + 24h, monotonically non-decreasing.
	// Nil means the contact has never sent an inbound message.
	WindowExpiresAt *time.Time `json:"window_expires_at,omitempty"`
	LastInboundAt   *time.Time `json:"last_inbound_at,omitempty"`
}

// NewConversation creates the initial state for a contact's first inbound
// message.
func NewConversation(organizationID, contactID string, now time.Time) *Conversation {
	return &Conversation{
		OrganizationID: organizationID,
		ContactID:      contactID,
		Bindings:       make(map[string]any),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// HasSuspendedExecution reports whether a flow is parked on a node awaiting
// input for this conversation.
func (c *Conversation) HasSuspendedExecution() bool {
	return c.CurrentNodeID != ""
}

// Reset clears the execution pointer and bumps the generation. Collected
// bindings and window state survive a reset.
func (c *Conversation) Reset(now time.Time) {
	c.ActiveFlowID = ""
	c.ActiveFlowVersion = 0
	c.CurrentNodeID = ""
	c.SuspendedSince = nil
	c.DelayUntil = nil
	c.PromptAttempts = 0
	c.Faulted = false
	c.FaultReason = ""
	c.Generation++
	c.UpdatedAt = now
}

// SetBinding merges a single variable into the conversation bindings.
func (c *Conversation) SetBinding(name string, value any) {
	if c.Bindings == nil {
		c.Bindings = make(map[string]any)
	}

	c.Bindings[name] = value
}
