package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()

	id1, ch1 := bus.Subscribe(8)
	id2, ch2 := bus.Subscribe(8)
	defer bus.Unsubscribe(id1)
	defer bus.Unsubscribe(id2)

	bus.PublishNew(EventTypeTaskAssigned, "task-1", "", map[string]string{"kind": "ner"})

	for _, ch := range []<-chan *Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventTypeTaskAssigned, ev.Type)
			assert.Equal(t, "task-1", ev.ResourceID)
			assert.Equal(t, "ner", ev.Metadata["kind"])
			assert.NotEmpty(t, ev.ID)
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestBus_DropsWhenBufferFull(t *testing.T) {
	bus := New()

	id, ch := bus.Subscribe(1)
	defer bus.Unsubscribe(id)

	bus.PublishNew(EventTypeTaskCreated, "task-1", "", nil)
	// Buffer is full; this one is dropped instead of blocking the publisher.
	bus.PublishNew(EventTypeTaskCreated, "task-2", "", nil)

	ev := <-ch
	require.Equal(t, "task-1", ev.ResourceID)
	select {
	case ev := <-ch:
		t.Fatalf("expected second event dropped, got %s", ev.ResourceID)
	default:
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()

	id, ch := bus.Subscribe(1)
	bus.Unsubscribe(id)

	// Channel is closed and later publishes go nowhere.
	_, open := <-ch
	assert.False(t, open)
	bus.PublishNew(EventTypeTaskCreated, "task-1", "", nil)
}
