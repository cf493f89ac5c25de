package sse

import (
	"testing"

	"fddhub/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPublishToFranchisor(t *testing.T) {
	s := New(logger.NewNop())
	franchisorID := uuid.New()
	a := &client{userID: uuid.New(), franchisorID: franchisorID, events: make(chan Event, 1)}
	b := &client{userID: uuid.New(), franchisorID: franchisorID, events: make(chan Event, 1)}
	other := &client{userID: uuid.New(), franchisorID: uuid.New(), events: make(chan Event, 1)}
	s.addClient(a)
	s.addClient(b)
	s.addClient(other)

	s.PublishToFranchisor(franchisorID, Event{Type: EventLeadUpdated})

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Empty(t, other.events)
}

func TestRemoveClientCleansUp(t *testing.T) {
	s := New(logger.NewNop())
	franchisorID := uuid.New()
	c := &client{userID: uuid.New(), franchisorID: franchisorID, events: make(chan Event, 1)}
	s.addClient(c)

	s.removeClient(c)

	assert.Empty(t, s.clients)
	assert.Empty(t, s.franchisorMap)
	s.Publish(c.userID, Event{Type: EventNotification})
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	s := New(logger.NewNop())
	c := &client{userID: uuid.New(), events: make(chan Event, 1)}
	s.addClient(c)

	s.Publish(c.userID, Event{Type: EventNotification, Message: "first"})
	s.Publish(c.userID, Event{Type: EventNotification, Message: "second"})

	got := <-c.events
	assert.Equal(t, "first", got.Message)
	assert.Empty(t, c.events)
}
