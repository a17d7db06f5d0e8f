package memorybus

import (
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
)

func recv(t *testing.T, ch <-chan ports.Event) ports.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return evt
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for event")
	}
	return ports.Event{}
}

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	b := New()
	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	b.Publish(ports.TopicPageRefreshed, []byte(`{"trackingId":"t1"}`))

	for _, ch := range []<-chan ports.Event{ch1, ch2} {
		evt := recv(t, ch)
		if evt.Topic != ports.TopicPageRefreshed {
			t.Fatalf("topic: want %q, got %q", ports.TopicPageRefreshed, evt.Topic)
		}
		if string(evt.Payload) != `{"trackingId":"t1"}` {
			t.Fatalf("payload: got %s", evt.Payload)
		}
	}
}

func TestBus_SlowSubscriberDrops(t *testing.T) {
	b := NewWithBuffer(1)
	_, cancel := b.Subscribe()
	defer cancel()

	b.Publish("a", nil)
	b.Publish("b", nil)
	b.Publish("c", nil)

	if got := b.Dropped(); got != 2 {
		t.Fatalf("dropped: want 2, got %d", got)
	}
}

func TestBus_CancelAndClose(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe()
	if b.Subscribers() != 1 {
		t.Fatalf("subscribers: want 1, got %d", b.Subscribers())
	}
	cancel()
	cancel() // idempotent
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after cancel")
	}

	ch2, _ := b.Subscribe()
	b.Close()
	if _, ok := <-ch2; ok {
		t.Fatalf("expected closed channel after Close")
	}
	b.Publish("ignored", nil)

	ch3, cancel3 := b.Subscribe()
	defer cancel3()
	if _, ok := <-ch3; ok {
		t.Fatalf("subscribe after Close should return a closed channel")
	}
}
