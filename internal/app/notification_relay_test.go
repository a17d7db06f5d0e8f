package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
	"github.com/rs/zerolog"
)

type chanBus struct {
	ch chan ports.Event
}

func (b *chanBus) Publish(topic string, payload []byte) {
	b.ch <- ports.Event{Topic: topic, Payload: payload}
}

func (b *chanBus) Subscribe() (<-chan ports.Event, func()) { return b.ch, func() {} }

type memSink struct {
	mu    sync.Mutex
	notes []ports.Notification
	err   error
}

func (s *memSink) Notify(ctx context.Context, n ports.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
	return s.err
}

func (s *memSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

func TestNotificationRelay_ForwardsNotificationsOnly(t *testing.T) {
	bus := &chanBus{ch: make(chan ports.Event, 8)}
	ok := &memSink{}
	failing := &memSink{err: errBoom}
	relay := NewNotificationRelay(zerolog.Nop(), bus, 1, failing, ok)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	b, _ := json.Marshal(ports.Notification{ID: "notify-a-1", TrackingID: "a", Title: "Change Detected!"})
	bus.Publish(ports.TopicPageRefreshed, []byte(`{"trackingId":"a"}`))
	bus.Publish(ports.TopicNotification, []byte(`not json`))
	bus.Publish(ports.TopicNotification, b)

	waitFor(t, time.Second, func() bool { return ok.count() == 1 }, "notification forwarded")
	if failing.count() != 1 {
		t.Fatalf("every sink should be called even when one fails")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("relay did not stop")
	}
}

func TestDeliveryPool_SetCount(t *testing.T) {
	queue := make(chan ports.Notification, 4)
	sink := &memSink{}
	p := NewDeliveryPool(context.Background(), zerolog.Nop(), queue, sink)
	defer p.Close()

	p.SetCount(3)
	if p.Count() != 3 {
		t.Fatalf("count: want 3, got %d", p.Count())
	}
	p.SetCount(1)
	if p.Count() != 1 {
		t.Fatalf("count: want 1, got %d", p.Count())
	}

	queue <- ports.Notification{ID: "n1", TrackingID: "a"}
	queue <- ports.Notification{ID: "n2", TrackingID: "a"}
	waitFor(t, time.Second, func() bool { return sink.count() == 2 }, "both notifications delivered")
}
