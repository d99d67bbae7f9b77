// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/zapflow/zapflow/pkg/models"
)

// CreateTestFlow creates a published test flow with default values that can
// be overridden.
func CreateTestFlow(overrides ...func(*models.Flow)) *models.Flow {
	now := time.Now().UTC()
	flow := &models.Flow{
		ID:             uuid.New().String(),
		OrganizationID: "org-test",
		Name:           "Test Flow",
		Status:         models.FlowStatusPublished,
		Version:        1,
		Nodes:          []*models.FlowNode{},
		Edges:          []*models.Edge{},
		CreatedAt:      now,
		UpdatedAt:      now,
		PublishedAt:    &now,
	}

	for _, override := range overrides {
		override(flow)
	}

	return flow
}

// WithKeywords sets the flow's trigger keywords.
func WithKeywords(keywords ...string) func(*models.Flow) {
	return func(f *models.Flow) {
		f.Trigger.Keywords = keywords
	}
}

// WithUniversal marks the flow as the organization fallback.
func WithUniversal() func(*models.Flow) {
	return func(f *models.Flow) {
		f.Trigger.IsUniversal = true
	}
}

// WithStatus sets the flow status.
func WithStatus(status models.FlowStatus) func(*models.Flow) {
	return func(f *models.Flow) {
		f.Status = status
	}
}

// WithNodes replaces the flow's nodes.
func WithNodes(nodes ...*models.FlowNode) func(*models.Flow) {
	return func(f *models.Flow) {
		f.Nodes = nodes
	}
}

// WithEdges replaces the flow's edges.
func WithEdges(edges ...*models.Edge) func(*models.Flow) {
	return func(f *models.Flow) {
		f.Edges = edges
	}
}

// Node creates a flow node of the given type.
func Node(id, nodeType string, config map[string]any) *models.FlowNode {
	return &models.FlowNode{
		ID:     id,
		Type:   nodeType,
		Name:   id,
		Config: config,
	}
}

// Edge creates an unlabeled edge between two nodes.
func Edge(sourceID, targetID string) *models.Edge {
	return &models.Edge{
		ID:       sourceID + "->" + targetID,
		SourceID: sourceID,
		TargetID: targetID,
	}
}

// LabeledEdge creates a labeled edge between two nodes.
func LabeledEdge(sourceID, targetID, label string) *models.Edge {
	return &models.Edge{
		ID:       sourceID + "->" + targetID + ":" + label,
		SourceID: sourceID,
		TargetID: targetID,
		Label:    label,
	}
}

// WeightedEdge creates a labeled edge carrying a random-node weight.
func WeightedEdge(sourceID, targetID, label string, weight float64) *models.Edge {
	edge := LabeledEdge(sourceID, targetID, label)
	edge.Weight = weight

	return edge
}

// LinearFlow builds a start -> message -> end flow, the smallest complete
// graph that exercises the executor.
func LinearFlow(overrides ...func(*models.Flow)) *models.Flow {
	base := []func(*models.Flow){
		WithNodes(
			Node("start", models.NodeTypeStart, nil),
			Node("hello", models.NodeTypeMessage, map[string]any{"text": "Hello!"}),
			Node("bye", models.NodeTypeEnd, nil),
		),
		WithEdges(
			Edge("start", "hello"),
			Edge("hello", "bye"),
		),
	}

	return CreateTestFlow(append(base, overrides...)...)
}

// CreateTestConversation creates a fresh conversation with default values.
func CreateTestConversation(overrides ...func(*models.Conversation)) *models.Conversation {
	conversation := models.NewConversation("org-test", "contact-test", time.Now().UTC())

	for _, override := range overrides {
		override(conversation)
	}

	return conversation
}

// InboundText creates an inbound text message received now.
func InboundText(organizationID, contactID, text string) *models.InboundMessage {
	return &models.InboundMessage{
		OrganizationID: organizationID,
		ContactID:      contactID,
		Kind:           models.MessageKindText,
		Text:           text,
		ReceivedAt:     time.Now().UTC(),
	}
}
