package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"fddhub/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinged struct {
	BaseEvent
	N int
}

func (pinged) EventName() string { return "test.pinged" }

func TestPublishSyncJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.NewNop())
	var calls int
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error {
		calls++
		return errors.New("first")
	}))
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error {
		calls++
		return nil
	}))
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error {
		calls++
		return errors.New("third")
	}))

	err := bus.PublishSync(context.Background(), pinged{BaseEvent: NewBaseEvent()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "third")
	assert.Equal(t, 3, calls)
}

func TestPublishSyncRecoversPanics(t *testing.T) {
	bus := NewInMemoryBus(logger.NewNop())
	var ran bool
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error {
		panic("boom")
	}))
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error {
		ran = true
		return nil
	}))

	err := bus.PublishSync(context.Background(), pinged{BaseEvent: NewBaseEvent()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.True(t, ran)
}

func TestPublishIsAsyncAndDetached(t *testing.T) {
	bus := NewInMemoryBus(logger.NewNop())
	var got atomic.Int64
	var ctxErr atomic.Value
	bus.Subscribe("test.pinged", HandlerFunc(func(ctx context.Context, e Event) error {
		got.Add(int64(e.(pinged).N))
		if ctx.Err() != nil {
			ctxErr.Store(ctx.Err())
		}
		return nil
	}))
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error {
		panic("ignored")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, pinged{BaseEvent: NewBaseEvent(), N: 5})
	bus.Wait()

	assert.Equal(t, int64(5), got.Load())
	assert.Nil(t, ctxErr.Load())
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := NewInMemoryBus(nil)
	bus.Publish(context.Background(), pinged{})
	assert.NoError(t, bus.PublishSync(context.Background(), pinged{}))
}

func TestNewBaseEvent(t *testing.T) {
	a, b := NewBaseEvent(), NewBaseEvent()
	assert.NotEqual(t, uuid.Nil, a.EventID())
	assert.NotEqual(t, a.EventID(), b.EventID())
	assert.Equal(t, "UTC", a.OccurredAt().Location().String())
	assert.Equal(t, a.ID.String(), eventID(pinged{BaseEvent: a}))
}
