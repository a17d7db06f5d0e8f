package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
	"github.com/rs/zerolog"
)

// Dispatcher route chaque message vers son traitement.
// Une tracking inconnue est un no-op silencieux, comme côté extension.
type Dispatcher struct {
	logger    zerolog.Logger
	trackings *TrackingService
	notifier  *Notifier
	bus       ports.EventBus
}

func NewDispatcher(logger zerolog.Logger, trackings *TrackingService, notifier *Notifier, bus ports.EventBus) *Dispatcher {
	return &Dispatcher{logger: logger, trackings: trackings, notifier: notifier, bus: bus}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.Message) error {
	if msg == nil {
		return invalid("invalid_message", "empty message", nil)
	}
	d.logger.Debug().Str("action", string(msg.Action())).Str("tracking_id", msg.TargetID()).Msg("message received")

	var err error
	switch m := msg.(type) {
	case domain.StartTracking:
		_, err = d.trackings.StartWith(ctx, m)
	case domain.StopTracking:
		_, err = d.trackings.Stop(ctx, m.TrackingID)
	case domain.RefreshNow:
		_, err = d.trackings.RefreshNow(ctx, m.TrackingID)
	case domain.ContentChanged:
		err = d.notifier.HandleContentChange(ctx, m.TrackingID)
	case domain.ChangeDetected:
		// Diffusion seule: les tableaux de bord se mettent à jour.
		if d.bus != nil {
			if b, encErr := domain.EncodeMessage(m); encErr == nil {
				d.bus.Publish(ports.TopicChangeDetected, b)
			}
		}
	default:
		return invalid("invalid_message", fmt.Sprintf("unhandled message %T", msg), domain.ErrUnknownAction)
	}

	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Emit est la forme "fire-and-forget" utilisée par le détecteur.
func (d *Dispatcher) Emit(ctx context.Context, msg domain.Message) {
	if err := d.Dispatch(ctx, msg); err != nil {
		d.logger.Error().Err(err).Str("action", string(msg.Action())).Str("tracking_id", msg.TargetID()).Msg("message handling failed")
	}
}
