package app

import (
	"context"
	"encoding/json"

	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
	"github.com/rs/zerolog"
)

const notificationQueueSize = 64

// NotificationRelay écoute le bus et met en file les notifications pour le
// DeliveryPool (log, webhook...). Les autres topics sont ignorés.
type NotificationRelay struct {
	logger  zerolog.Logger
	bus     ports.EventBus
	sinks   []ports.NotificationSink
	workers int

	queue chan ports.Notification
}

func NewNotificationRelay(logger zerolog.Logger, bus ports.EventBus, workers int, sinks ...ports.NotificationSink) *NotificationRelay {
	if workers <= 0 {
		workers = 1
	}
	return &NotificationRelay{
		logger:  logger,
		bus:     bus,
		sinks:   sinks,
		workers: workers,
		queue:   make(chan ports.Notification, notificationQueueSize),
	}
}

// Run bloque jusqu'à l'annulation de ctx.
func (u *NotificationRelay) Run(ctx context.Context) {
	if u == nil || u.bus == nil || len(u.sinks) == 0 {
		return
	}
	ch, cancel := u.bus.Subscribe()
	defer cancel()

	pool := NewDeliveryPool(ctx, u.logger, u.queue, u.sinks...)
	pool.SetCount(u.workers)
	defer pool.Close()

	for {
		select {
		case <-ctx.Done():
			u.logger.Info().Msg("notification relay stopped")
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			u.handleEvent(evt)
		}
	}
}

func (u *NotificationRelay) handleEvent(evt ports.Event) {
	if evt.Topic != ports.TopicNotification {
		return
	}

	var n ports.Notification
	if err := json.Unmarshal(evt.Payload, &n); err != nil {
		return
	}
	if n.TrackingID == "" {
		return
	}

	select {
	case u.queue <- n:
	default:
		u.logger.Warn().Str("tracking_id", n.TrackingID).Msg("notification queue full, dropped")
	}
}
