package events

import (
	"testing"
	"time"
)

func TestEmitReachesAllSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Emit(Event{Topic: TopicCategoryCreated, CategoryID: "cat-1"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.Topic != TopicCategoryCreated {
				t.Errorf("Topic = %s, want %s", ev.Topic, TopicCategoryCreated)
			}
			if ev.CategoryID != "cat-1" {
				t.Errorf("CategoryID = %s, want cat-1", ev.CategoryID)
			}
			if ev.ID == 0 {
				t.Error("sequence number not assigned")
			}
			if ev.Timestamp.IsZero() {
				t.Error("timestamp not assigned")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestSequenceNumbersIncrease(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Emit(Event{Topic: TopicProgressPathCreated})
	bus.Emit(Event{Topic: TopicProgressPathCreated})

	first := <-ch
	second := <-ch
	if second.ID <= first.ID {
		t.Errorf("sequence not increasing: %d then %d", first.ID, second.ID)
	}
}

func TestFullSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	bus.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Emit(Event{Topic: TopicProgressPathError})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full subscriber channel")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("channel still open after Unsubscribe")
	}

	// Emitting after unsubscribe must not panic.
	bus.Emit(Event{Topic: TopicCategoryCreationError})
}
