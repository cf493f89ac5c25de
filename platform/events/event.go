// Package events is a small in-process publish/subscribe bus. Domain event
// types live with the domain (internal/events).
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every published value. EventName is the
// subscription key.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// Identified events carry an id that handlers can log or use for dedupe.
type Identified interface {
	EventID() uuid.UUID
}

// BaseEvent is embedded by domain events.
type BaseEvent struct {
	ID        uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

func (e BaseEvent) EventID() uuid.UUID { return e.ID }

// NewBaseEvent stamps a fresh id and the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: time.Now().UTC()}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function subscribe.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes events to the handlers subscribed under their name.
// Publish is fire-and-forget; PublishSync returns the handlers' joined errors.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}

func eventID(event Event) string {
	if e, ok := event.(Identified); ok {
		return e.EventID().String()
	}
	return ""
}
