// Package models defines the core domain models for WhatsApp conversation flow automation.
package models

import "time"

// FlowStatus represents the lifecycle state of a flow.
type FlowStatus string

const (
	FlowStatusDraft       FlowStatus = "draft"       // Editable, not executable
	FlowStatusPublished   FlowStatus = "published"   // Current active, executable
	FlowStatusUnpublished FlowStatus = "unpublished" // Historical, not executable
)

// TriggerConfig declares how inbound messages select this flow.
type TriggerConfig struct {
	// Keywords that start this flow. Matching is case-insensitive, trimmed,
	// exact or partial. Ties between flows are broken by longest keyword
	// match, then by flow creation order (oldest first).
	Keywords []string `json:"keywords"`

	// IsUniversal marks this flow as the organization fallback, used when no
	// keyword matches and no execution is suspended.
	IsUniversal bool `json:"is_universal"`

	// IsMain marks the flow shown first in the editor. It has no resolution
	// semantics.
	IsMain bool `json:"is_main"`
}

// Flow represents a versioned conversation flow graph owned by an organization.
// A published flow is immutable; edits create a new version.
type Flow struct {
	ID             string        `json:"id"`
	OrganizationID string        `json:"organization_id" validate:"required"`
	Name           string        `json:"name"            validate:"required,min=3"`
	Status         FlowStatus    `json:"status"          validate:"required"`
	Version        int           `json:"version"` // Monotonic per flow ID
	Nodes          []*FlowNode   `json:"nodes"`
	Edges          []*Edge       `json:"edges"`
	Trigger        TriggerConfig `json:"trigger"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	PublishedAt    *time.Time    `json:"published_at,omitempty"`
	DeletedAt      *time.Time    `json:"deleted_at,omitempty"`
}

// StartNode returns the flow's entry node, or nil when the graph has none.
// Validation guarantees exactly one for published flows.
func (f *Flow) StartNode() *FlowNode {
	for _, node := range f.Nodes {
		if node.Type == NodeTypeStart {
			return node
		}
	}

	return nil
}

// NodeByID returns the node with the given ID, or nil.
func (f *Flow) NodeByID(id string) *FlowNode {
	for _, node := range f.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}
