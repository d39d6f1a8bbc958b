package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(Event{Type: RunStarted, RunID: "r1", Total: 3})

	select {
	case ev := <-ch:
		assert.Equal(t, RunStarted, ev.Type)
		assert.Equal(t, "r1", ev.RunID)
		assert.False(t, ev.At.IsZero(), "publish stamps the event time")
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_CancelStopsDelivery(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	cancel()

	// Publishing after cancel must not panic or deliver.
	bus.Publish(Event{Type: RunCompleted, RunID: "r2"})

	_, open := <-ch
	assert.False(t, open, "channel closes on cancel")
}

func TestBus_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	// Overfill the subscriber buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			bus.Publish(Event{Type: FactorEvaluated, RunID: "r3", Completed: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// The buffer holds the first events; later ones were dropped.
	first := <-ch
	require.Equal(t, 0, first.Completed)
}

func TestBus_DoubleCancelIsSafe(t *testing.T) {
	bus := NewBus()
	_, cancel := bus.Subscribe()
	cancel()
	assert.NotPanics(t, cancel)
}
