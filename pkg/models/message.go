// Package models defines inbound and outbound message models.
package models

import "time"

// MessageKind classifies the content of an inbound message.
type MessageKind string

const (
	MessageKindText        MessageKind = "text"
	MessageKindInteractive MessageKind = "interactive" // Button or list reply
	MessageKindMedia       MessageKind = "media"
)

// InboundMessage is one already-authenticated webhook event from the
// messaging provider. Signature verification happens upstream.
type InboundMessage struct {
	OrganizationID string      `json:"organization_id" validate:"required"`
	ContactID      string      `json:"contact_id"      validate:"required"`
	Text           string      `json:"text"`
	Kind           MessageKind `json:"kind"`
	ReceivedAt     time.Time   `json:"received_at"`
}

// WindowVerdict is the window guard's decision for an outbound send.
type WindowVerdict string

const (
	// FreeFormAllowed means the 24-hour window is open and any payload may be
	// sent.
	FreeFormAllowed WindowVerdict = "free_form_allowed"
	// TemplateRequired means the window is closed and only a pre-approved
	// template may be sent.
	TemplateRequired WindowVerdict = "template_required"
)

// TemplateReference identifies a pre-approved provider template plus its
// parameter bindings.
type TemplateReference struct {
	Name       string            `json:"name" validate:"required"`
	Language   string            `json:"language"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// InteractiveOption is one button or list row offered to the contact.
type InteractiveOption struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// OutboundMessage is a send request handed to the dispatch collaborator. The
// engine never calls the provider directly; the dispatcher owns retries and
// delivery-status tracking.
type OutboundMessage struct {
	OrganizationID string `json:"organization_id"`
	ContactID      string `json:"contact_id"`

	// Exactly one of Text and Template is set, except for interactive sends
	// where Text carries the body and Options the choices.
	Text     string             `json:"text,omitempty"`
	Template *TemplateReference `json:"template,omitempty"`
	Options  []InteractiveOption `json:"options,omitempty"`

	// Verdict is the window guard verdict at the time the send was requested.
	Verdict WindowVerdict `json:"window_verdict"`

	NodeID    string    `json:"node_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsTemplate reports whether this send is a pre-approved template, which the
// provider accepts regardless of window state.
func (m *OutboundMessage) IsTemplate() bool {
	return m.Template != nil
}
