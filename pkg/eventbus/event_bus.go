// Package eventbus provides event-driven communication infrastructure for the
// conversation engine.
package eventbus

import (
	"context"

	"github.com/zapflow/zapflow/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	// Publish places an event on the given topic. Key is the partition key;
	// events sharing a key are delivered in order.
	Publish(ctx context.Context, topic, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context, topic string) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
