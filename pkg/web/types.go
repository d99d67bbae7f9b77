package web

import (
	"time"

	"github.com/zapflow/zapflow/pkg/models"
)

// WebhookRequest is one provider webhook event. Signature verification
// happens at the edge before this payload reaches the API.
type WebhookRequest struct {
	OrganizationID string    `json:"organization_id" validate:"required"`
	ContactID      string    `json:"contact_id"      validate:"required"`
	Text           string    `json:"text"`
	Kind           string    `json:"kind"`
	ReceivedAt     time.Time `json:"received_at"`
}

// CreateFlowRequest creates a new draft flow.
type CreateFlowRequest struct {
	OrganizationID string               `json:"organization_id" validate:"required"`
	Name           string               `json:"name"            validate:"required,min=3"`
	Nodes          []*models.FlowNode   `json:"nodes"`
	Edges          []*models.Edge       `json:"edges"`
	Trigger        models.TriggerConfig `json:"trigger"`
}

// UpdateFlowRequest replaces the draft definition of an existing flow.
type UpdateFlowRequest struct {
	Name    string               `json:"name"    validate:"required,min=3"`
	Nodes   []*models.FlowNode   `json:"nodes"`
	Edges   []*models.Edge       `json:"edges"`
	Trigger models.TriggerConfig `json:"trigger"`
}

// ResetConversationRequest identifies the operator issuing the reset.
type ResetConversationRequest struct {
	RequestedBy string `json:"requested_by"`
}

// NodeTypeInfo describes one registered node type for the flow editor.
type NodeTypeInfo struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}
