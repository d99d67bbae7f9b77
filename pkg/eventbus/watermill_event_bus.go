package eventbus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/zapflow/zapflow/pkg/events"
)

type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) EventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, topic, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context, topic string) error {
	messages, err := eb.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var event any

			eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

			handler, exists := eb.subscriptions[eventType]
			if !exists {
				msg.Ack()

				continue
			}

			switch eventType {
			case events.InboundReceivedEvent:
				event = &events.InboundReceived{}
			case events.FlowStartedEvent:
				event = &events.FlowStarted{}
			case events.FlowResumedEvent:
				event = &events.FlowResumed{}
			case events.FlowSuspendedEvent:
				event = &events.FlowSuspended{}
			case events.FlowCompletedEvent:
				event = &events.FlowCompleted{}
			case events.FlowFaultedEvent:
				event = &events.FlowFaulted{}
			case events.OutboundRequestedEvent:
				event = &events.OutboundRequested{}
			case events.OutboundBlockedEvent:
				event = &events.OutboundBlocked{}
			case events.HandoffRequestedEvent:
				event = &events.HandoffRequested{}
			case events.DelayScheduledEvent:
				event = &events.DelayScheduled{}
			case events.DelayElapsedEvent:
				event = &events.DelayElapsed{}
			case events.ConversationResetEvent:
				event = &events.ConversationReset{}
			case events.FlowPublishedEvent:
				event = &events.FlowPublished{}
			default:
				msg.Nack()

				continue
			}

			err := json.Unmarshal(msg.Payload, event)
			if err != nil {
				msg.Nack()

				continue
			}

			err = handler(ctx, event)
			if err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
