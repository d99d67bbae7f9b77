package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zapflow/zapflow/pkg/eventbus"
	"github.com/zapflow/zapflow/pkg/events"
	"github.com/zapflow/zapflow/pkg/flow"
	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/persistence"
)

// Publishing validates and publishes flow versions. A publish freezes the
// version: in-flight conversations pinned to older versions are untouched,
// new executions pick up the published one.
type Publishing struct {
	persistence persistence.Persistence
	validator   *flow.Validator
	eventBus    eventbus.EventBus
	logger      *slog.Logger
}

// NewPublishing creates the flow publishing service.
func NewPublishing(p persistence.Persistence, validator *flow.Validator, eventBus eventbus.EventBus, logger *slog.Logger) *Publishing {
	return &Publishing{
		persistence: p,
		validator:   validator,
		eventBus:    eventBus,
		logger:      logger.With("module", "publishing"),
	}
}

// Publish validates the latest draft of a flow and makes it the published
// version. Validation failures abort the publish; nothing changes.
func (s *Publishing) Publish(ctx context.Context, flowID string) (*models.Flow, error) {
	definition, err := s.persistence.FlowRepository().FlowByID(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load flow: %w", err)
	}

	err = s.validateForPublishing(definition)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	// The previously published version becomes historical.
	if definition.Version > 1 {
		previous, err := s.persistence.FlowRepository().FlowVersion(ctx, flowID, definition.Version-1)
		if err == nil && previous.Status == models.FlowStatusPublished {
			previous.Status = models.FlowStatusUnpublished
			previous.UpdatedAt = now

			err = s.persistence.FlowRepository().SaveFlow(ctx, previous)
			if err != nil {
				return nil, fmt.Errorf("failed to retire previous version: %w", err)
			}
		}
	}

	definition.Status = models.FlowStatusPublished
	definition.PublishedAt = &now
	definition.UpdatedAt = now

	err = s.persistence.FlowRepository().SaveFlow(ctx, definition)
	if err != nil {
		return nil, fmt.Errorf("failed to save published flow: %w", err)
	}

	s.logger.Info("Flow published",
		"flow_id", definition.ID,
		"flow_version", definition.Version,
		"organization_id", definition.OrganizationID)

	event := events.FlowPublished{
		BaseEvent: events.BaseEvent{
			ID:             s.eventBus.GenerateID(),
			Type:           events.FlowPublishedEvent,
			Timestamp:      now,
			OrganizationID: definition.OrganizationID,
		},
		FlowID:      definition.ID,
		FlowVersion: definition.Version,
	}

	err = s.eventBus.Publish(ctx, events.EngineTopic, definition.OrganizationID, event)
	if err != nil {
		s.logger.Error("Failed to publish flow published event", "error", err)
	}

	return definition, nil
}

func (s *Publishing) validateForPublishing(definition *models.Flow) error {
	if definition == nil {
		return ErrFlowNil
	}

	if definition.Name == "" {
		return ErrFlowNameRequired
	}

	if len(definition.Nodes) == 0 {
		return ErrNodesRequired
	}

	if definition.Status == models.FlowStatusPublished {
		return ErrCannotModifyPublished
	}

	return s.validator.Validate(definition)
}

// Unpublish withdraws a flow from trigger resolution without touching
// in-flight conversations.
func (s *Publishing) Unpublish(ctx context.Context, flowID string) (*models.Flow, error) {
	definition, err := s.persistence.FlowRepository().FlowByID(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load flow: %w", err)
	}

	if definition.Status != models.FlowStatusPublished {
		return nil, ErrNotPublished
	}

	definition.Status = models.FlowStatusUnpublished
	definition.UpdatedAt = time.Now().UTC()

	err = s.persistence.FlowRepository().SaveFlow(ctx, definition)
	if err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	return definition, nil
}
