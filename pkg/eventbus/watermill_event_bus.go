package eventbus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flowkite/flowkite/pkg/events"
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

// Publish sends the event on the global topic and on the workflow's room
// topic. key is the workflow id the event belongs to.
func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventKeyMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	err = eb.publisher.Publish(events.Topic, msg)
	if err != nil {
		return err
	}

	room := message.NewMessage("msg-"+eb.GenerateID(), payload)
	room.Metadata.Set(events.EventKeyMetadataKey, key)
	room.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.RoomTopic(key), room)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			event, err := decodeEvent(msg)
			if err != nil {
				msg.Nack()

				continue
			}

			handler, exists := eb.subscriptions[event.GetType()]
			if !exists {
				msg.Ack()

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

// SubscribeRoom delivers every event for one workflow. Delivery is lossy by
// design: a subscriber that stops draining its channel has further events
// dropped instead of backpressuring the publisher.
func (eb *WatermillEventBus) SubscribeRoom(ctx context.Context, workflowID string) (<-chan Event, error) {
	messages, err := eb.subscriber.Subscribe(ctx, events.RoomTopic(workflowID))
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 64)

	go func() {
		defer close(out)

		for msg := range messages {
			event, err := decodeEvent(msg)
			if err != nil {
				msg.Ack()

				continue
			}

			select {
			case out <- event:
			default:
			}

			msg.Ack()
		}
	}()

	return out, nil
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) {
	eb.subscriptions[eventType] = handler
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}

func decodeEvent(msg *message.Message) (Event, error) {
	var event Event

	switch events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey)) {
	case events.ExecutionStartedEvent:
		event = &events.ExecutionStarted{}
	case events.ExecutionCompletedEvent:
		event = &events.ExecutionCompleted{}
	case events.ExecutionFailedEvent:
		event = &events.ExecutionFailed{}
	case events.ExecutionCancelledEvent:
		event = &events.ExecutionCancelled{}
	case events.StepStartedEvent:
		event = &events.StepStarted{}
	case events.StepCompletedEvent:
		event = &events.StepCompleted{}
	case events.StepFailedEvent:
		event = &events.StepFailed{}
	default:
		return nil, ErrUnknownEventType
	}

	err := json.Unmarshal(msg.Payload, event)
	if err != nil {
		return nil, err
	}

	return event, nil
}
