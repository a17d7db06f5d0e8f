package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
	"github.com/rs/zerolog"
)

type emitted struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (e *emitted) emit(ctx context.Context, msg domain.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *emitted) len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.msgs)
}

func TestChangeDetector_FirstObservationIsBaseline(t *testing.T) {
	ctx := context.Background()
	rec := testRecord("a")
	rec.IsTracking = true
	reg, _ := newTestRegistry(t, rec)
	out := &emitted{}
	d := NewChangeDetector(zerolog.Nop(), reg)
	d.Emit = out.emit

	if d.Observe(ctx, "a", rec.URL, "hello") {
		t.Fatalf("first observation must not report a change")
	}
	got, _ := reg.Get("a")
	if got.LastContentHash != domain.ContentHash("hello") {
		t.Fatalf("hash not stored: %q", got.LastContentHash)
	}

	if d.Observe(ctx, "a", rec.URL, "hello") {
		t.Fatalf("same content must not report a change")
	}
	if out.len() != 0 {
		t.Fatalf("no message expected, got %d", out.len())
	}

	if !d.Observe(ctx, "a", rec.URL, "hello world") {
		t.Fatalf("different content must report a change")
	}
	if out.len() != 1 {
		t.Fatalf("expected one CONTENT_CHANGED, got %d", out.len())
	}
	msg, ok := out.msgs[0].(domain.ContentChanged)
	if !ok || msg.TrackingID != "a" || msg.URL != rec.URL {
		t.Fatalf("unexpected message: %#v", out.msgs[0])
	}
	got, _ = reg.Get("a")
	if got.LastContentHash != domain.ContentHash("hello world") {
		t.Fatalf("new hash not stored")
	}
}

func TestChangeDetector_IgnoresInactiveOrUnknown(t *testing.T) {
	ctx := context.Background()
	rec := testRecord("a")
	rec.LastContentHash = domain.ContentHash("old")
	reg, _ := newTestRegistry(t, rec)
	out := &emitted{}
	d := NewChangeDetector(zerolog.Nop(), reg)
	d.Emit = out.emit

	if d.Observe(ctx, "a", rec.URL, "new") {
		t.Fatalf("inactive tracking must not report changes")
	}
	if d.Observe(ctx, "ghost", "https://x.example/", "new") {
		t.Fatalf("unknown tracking must not report changes")
	}
	if out.len() != 0 {
		t.Fatalf("no message expected")
	}
}

func TestScheduler_DetectsChangeAfterRefresh(t *testing.T) {
	rec := testRecord("a")
	rec.IsTracking = true
	reg, _ := newTestRegistry(t, rec)
	host := newFakeHost()
	host.setText("a", "v1")
	out := &emitted{}
	det := NewChangeDetector(zerolog.Nop(), reg)
	det.Emit = out.emit
	s := newTestScheduler(t, reg, host, det, nil)

	if err := s.Start(context.Background(), "a"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		got, _ := reg.Get("a")
		return got.LastContentHash == domain.ContentHash("v1")
	}, "baseline hash")
	if out.len() != 0 {
		t.Fatalf("baseline must not emit")
	}

	host.setText("a", "v2")
	waitFor(t, 2*time.Second, func() bool { return out.len() >= 1 }, "change detection")
}
