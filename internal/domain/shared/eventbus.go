package shared

import "context"

// EventHandler reacts to order events after they leave the outbox, e.g. the notification
// fan-out or the archive of closed orders. Delivery is at least once, so Handle must
// tolerate a repeated event id.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types to deliver; empty subscribes to all of them
	EventTypes() []string
}

// EventPublisher delivers committed events to subscribed handlers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber attaches handlers. Explicit eventTypes take precedence over
// the handler's own EventTypes.
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is the in-process dispatcher the outbox relay publishes to
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver writes order events to the outbox inside the transaction that saves the
// order, so an event exists only if its state change was committed.
// txProvider is the *gorm.DB of that transaction.
type OutboxEventSaver interface {
	SaveEvents(ctx context.Context, txProvider any, events ...DomainEvent) error
}
