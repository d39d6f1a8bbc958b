// Package events provides a small in-process event bus used to fan
// evaluation progress out to websocket subscribers.
package events

import (
	"sync"
	"time"
)

// EventType identifies the kind of progress event.
type EventType string

const (
	RunStarted      EventType = "run_started"
	FactorEvaluated EventType = "factor_evaluated"
	FactorFailed    EventType = "factor_failed"
	RunCompleted    EventType = "run_completed"
)

// Event is one progress notification.
type Event struct {
	Type EventType `json:"type"`
	At   time.Time `json:"at"`

	RunID    string `json:"run_id"`
	Strategy string `json:"strategy,omitempty"`

	// Factor-level fields, set for FactorEvaluated / FactorFailed.
	FactorID string `json:"factor_id,omitempty"`
	Grade    string `json:"grade,omitempty"`
	Reason   string `json:"reason,omitempty"`

	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Bus is a non-blocking publish/subscribe fan-out. Slow subscribers drop
// events instead of stalling the evaluation run.
type Bus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a buffered channel that receives future events.
// The returned cancel function removes the subscription.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is behind; drop rather than stall the run.
		}
	}
}
