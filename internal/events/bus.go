// Package events implements the process-local pub/sub bus used to sequence
// category and progress-path side effects. It is in-memory only; topics are
// not a network protocol.
package events

import (
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"dejavu/internal/logging"
)

// Topic identifies a bus event kind.
type Topic string

const (
	TopicCategoryCreated       Topic = "CATEGORY_CREATED"
	TopicCategoryCreationError Topic = "CATEGORY_CREATION_ERROR"
	TopicProgressPathCreated   Topic = "PROGRESS_PATH_CREATED"
	TopicProgressPathError     Topic = "PROGRESS_PATH_ERROR"
)

// Event is one bus message. Error topics carry user-facing remediation text
// in Message rather than a raw error.
type Event struct {
	ID         uint64
	Topic      Topic
	CategoryID string
	Message    string
	Payload    interface{}
	Timestamp  time.Time
}

// Bus dispatches events to subscribers. Subscriber channels are buffered and
// a full channel drops the event rather than blocking the emitter.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan Event
	sequence    atomic.Uint64
	closed      bool
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe returns a channel that will receive every event emitted after
// this call. The channel is closed by Unsubscribe or Close.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 32)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	if ch == nil {
		return
	}
	target := reflect.ValueOf(ch).Pointer()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if reflect.ValueOf(sub).Pointer() == target {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(sub)
			break
		}
	}
}

// Emit sends an event to all subscribers. Safe from any goroutine.
func (b *Bus) Emit(event Event) {
	event.ID = b.sequence.Add(1)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	logging.Get(logging.CategoryEvents).Debug("emit %s category=%s seq=%d",
		event.Topic, event.CategoryID, event.ID)

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subscribers {
		select {
		case sub <- event:
		default: // Drop if channel full
		}
	}
}

// Close shuts down the bus and all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil
}
