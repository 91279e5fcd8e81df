// Package eventbus fans lifecycle events out to subscribers without blocking
// the publisher.
package eventbus

import (
	"context"

	"github.com/flowkite/flowkite/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler)
	Subscribe(ctx context.Context) error

	// SubscribeRoom delivers every event for one workflow to the returned
	// channel. The channel is closed when ctx is cancelled.
	SubscribeRoom(ctx context.Context, workflowID string) (<-chan Event, error)
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
