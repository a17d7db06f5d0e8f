package app

import (
	"context"
	"sync"

	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
	"github.com/rs/zerolog"
)

// DeliveryPool distribue les notifications en file aux sinks avec un nombre
// de workers ajustable à chaud. Un webhook lent ne bloque pas les suivantes.
//
// SetCount() peut être appelé plusieurs fois et est thread-safe.
type DeliveryPool struct {
	parent context.Context

	logger zerolog.Logger
	queue  <-chan ports.Notification
	sinks  []ports.NotificationSink

	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

func NewDeliveryPool(parent context.Context, logger zerolog.Logger, queue <-chan ports.Notification, sinks ...ports.NotificationSink) *DeliveryPool {
	if parent == nil {
		parent = context.Background()
	}
	return &DeliveryPool{parent: parent, logger: logger, queue: queue, sinks: sinks}
}

func (p *DeliveryPool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cancels)
}

func (p *DeliveryPool) SetCount(n int) {
	if n <= 0 {
		n = 1
	}

	p.mu.Lock()
	current := len(p.cancels)

	if n == current {
		p.mu.Unlock()
		return
	}

	if n > current {
		for i := current; i < n; i++ {
			ctx, cancel := context.WithCancel(p.parent)
			p.cancels = append(p.cancels, cancel)
			logger := p.logger.With().Int("worker", i+1).Logger()
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.work(ctx, logger)
			}()
		}
		p.mu.Unlock()
		return
	}

	// n < current : stoppe les derniers workers
	toStop := append([]context.CancelFunc(nil), p.cancels[n:]...)
	p.cancels = p.cancels[:n]
	p.mu.Unlock()

	for _, cancel := range toStop {
		cancel()
	}
}

func (p *DeliveryPool) Close() {
	p.mu.Lock()
	toStop := append([]context.CancelFunc(nil), p.cancels...)
	p.cancels = nil
	p.mu.Unlock()

	for _, cancel := range toStop {
		cancel()
	}
	p.wg.Wait()
}

func (p *DeliveryPool) work(ctx context.Context, logger zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-p.queue:
			if !ok {
				return
			}
			p.deliver(ctx, logger, n)
		}
	}
}

// deliver appelle chaque sink; un échec n'empêche pas les suivants.
func (p *DeliveryPool) deliver(ctx context.Context, logger zerolog.Logger, n ports.Notification) {
	for _, sink := range p.sinks {
		if err := sink.Notify(ctx, n); err != nil {
			logger.Warn().Err(err).Str("tracking_id", n.TrackingID).Str("notification_id", n.ID).Msg("notification sink failed")
		}
	}
}
