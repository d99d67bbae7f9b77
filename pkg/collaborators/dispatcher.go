// Package collaborators provides the default implementations of the engine's
// external service contracts.
package collaborators

import (
	"context"
	"time"

	"github.com/zapflow/zapflow/pkg/eventbus"
	"github.com/zapflow/zapflow/pkg/events"
	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// BusDispatcher publishes outbound send requests on the event bus. The
// provider gateway consumes them; delivery, retries and status tracking live
// there, outside the engine.
type BusDispatcher struct {
	eventBus eventbus.EventBus
}

// NewBusDispatcher creates the event bus backed dispatcher.
func NewBusDispatcher(eventBus eventbus.EventBus) *BusDispatcher {
	return &BusDispatcher{eventBus: eventBus}
}

// Dispatch publishes one send request keyed by conversation.
func (d *BusDispatcher) Dispatch(ctx context.Context, msg *models.OutboundMessage) error {
	event := events.OutboundRequested{
		BaseEvent: events.BaseEvent{
			ID:             d.eventBus.GenerateID(),
			Type:           events.OutboundRequestedEvent,
			Timestamp:      time.Now().UTC(),
			OrganizationID: msg.OrganizationID,
			ContactID:      msg.ContactID,
		},
		Message: *msg,
	}

	return d.eventBus.Publish(ctx, events.EngineTopic, event.ConversationKey(), event)
}

// BusHumanQueue publishes handoff requests for the agent tooling to consume.
type BusHumanQueue struct {
	eventBus eventbus.EventBus
}

// NewBusHumanQueue creates the event bus backed human queue.
func NewBusHumanQueue(eventBus eventbus.EventBus) *BusHumanQueue {
	return &BusHumanQueue{eventBus: eventBus}
}

// Enqueue publishes one handoff request keyed by conversation.
func (q *BusHumanQueue) Enqueue(ctx context.Context, req protocol.HandoffRequest) error {
	event := events.HandoffRequested{
		BaseEvent: events.BaseEvent{
			ID:             q.eventBus.GenerateID(),
			Type:           events.HandoffRequestedEvent,
			Timestamp:      time.Now().UTC(),
			OrganizationID: req.OrganizationID,
			ContactID:      req.ContactID,
		},
		Queue:          req.Queue,
		ContextSummary: req.ContextSummary,
	}

	return q.eventBus.Publish(ctx, events.EngineTopic, event.ConversationKey(), event)
}
