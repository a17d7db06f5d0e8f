package memorybus

import (
	"sync"
	"sync/atomic"

	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
)

// Bus diffuse les événements en mémoire à tous les abonnés (SSE, relais de notifications).
type Bus struct {
	mu    sync.Mutex
	subs  map[chan ports.Event]struct{}
	alive bool
	size  int

	dropped atomic.Uint64
}

const defaultBuffer = 64

func New() *Bus {
	return NewWithBuffer(defaultBuffer)
}

func NewWithBuffer(size int) *Bus {
	if size <= 0 {
		size = defaultBuffer
	}
	return &Bus{subs: make(map[chan ports.Event]struct{}), alive: true, size: size}
}

func (b *Bus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.alive {
		return
	}
	evt := ports.Event{Topic: topic, Payload: payload}
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// drop si le client est trop lent
			b.dropped.Add(1)
		}
	}
}

func (b *Bus) Subscribe() (<-chan ports.Event, func()) {
	ch := make(chan ports.Event, b.size)
	b.mu.Lock()
	if !b.alive {
		close(ch)
		b.mu.Unlock()
		return ch, func() {}
	}
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

// Subscribers retourne le nombre d'abonnés actuels.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped compte les événements perdus faute de place chez un abonné.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Close ferme tous les abonnements; les Publish suivants sont ignorés.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.alive {
		return
	}
	b.alive = false
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
