package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
	"github.com/rs/zerolog"
)

type memStore struct {
	mu      sync.Mutex
	records []domain.TrackingRecord
	saves   int
	failErr error
}

func (s *memStore) Load(ctx context.Context) ([]domain.TrackingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TrackingRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *memStore) Save(ctx context.Context, records []domain.TrackingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.failErr != nil {
		return s.failErr
	}
	s.records = make([]domain.TrackingRecord, 0, len(records))
	for _, r := range records {
		s.records = append(s.records, r.Clone())
	}
	return nil
}

func (s *memStore) snapshot() []domain.TrackingRecord {
	recs, _ := s.Load(context.Background())
	return recs
}

type fakeHost struct {
	mu       sync.Mutex
	opens    map[string]int
	reloads  map[string]int
	reloaded map[string]string
	texts    map[string]string
	focused  []string
	closed   []string
	png      []byte
	openErr  error
	capErr   error
	openWait chan struct{}
}

func newFakeHost() *fakeHost {
	return &fakeHost{opens: map[string]int{}, reloads: map[string]int{}, reloaded: map[string]string{}, texts: map[string]string{}}
}

func (h *fakeHost) Open(ctx context.Context, id, url string) error {
	h.mu.Lock()
	wait := h.openWait
	h.opens[id]++
	err := h.openErr
	h.mu.Unlock()
	if wait != nil {
		<-wait
	}
	return err
}

func (h *fakeHost) Reload(ctx context.Context, id, url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloads[id]++
	h.reloaded[id] = url
	return nil
}

func (h *fakeHost) VisibleText(ctx context.Context, id string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.texts[id], nil
}

func (h *fakeHost) Focus(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.focused = append(h.focused, id)
	return nil
}

func (h *fakeHost) Capture(ctx context.Context, id string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.capErr != nil {
		return nil, h.capErr
	}
	return h.png, nil
}

func (h *fakeHost) Close(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = append(h.closed, id)
	return nil
}

func (h *fakeHost) setText(id, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.texts[id] = text
}

func (h *fakeHost) openCount(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opens[id]
}

// lastReloadURL renvoie l'URL passée au dernier Reload de id.
func (h *fakeHost) lastReloadURL(id string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reloaded[id]
}

func (h *fakeHost) reloadCount(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reloads[id]
}

var _ ports.PageHost = (*fakeHost)(nil)

// recordingBus garde tous les événements publiés.
type recordingBus struct {
	mu     sync.Mutex
	events []ports.Event
}

func (b *recordingBus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ports.Event{Topic: topic, Payload: append([]byte(nil), payload...)})
}

func (b *recordingBus) Subscribe() (<-chan ports.Event, func()) {
	ch := make(chan ports.Event)
	return ch, func() {}
}

func (b *recordingBus) count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Topic == topic {
			n++
		}
	}
	return n
}

func (b *recordingBus) last(topic string) (ports.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].Topic == topic {
			return b.events[i], true
		}
	}
	return ports.Event{}, false
}

type staticActive bool

func (a staticActive) Active(string) bool { return bool(a) }

var errBoom = errors.New("boom")

func newTestRegistry(t *testing.T, records ...domain.TrackingRecord) (*Registry, *memStore) {
	t.Helper()
	store := &memStore{records: records}
	reg := NewRegistry(zerolog.Nop(), store)
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return reg, store
}

func testRecord(id string) domain.TrackingRecord {
	return domain.TrackingRecord{
		ID:          id,
		URL:         "https://example.com/" + id,
		Name:        "example.com",
		MinInterval: 5,
		MaxInterval: 5,
		Snapshots:   []domain.Snapshot{},
	}
}

// fastSchedulerOptions: 1 "seconde" = 2ms, intervalle toujours égal au min.
func fastSchedulerOptions() SchedulerOptions {
	return SchedulerOptions{
		Unit:        2 * time.Millisecond,
		Intn:        func(int) int { return 0 },
		SettleDelay: func(context.Context) time.Duration { return 0 },
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}
