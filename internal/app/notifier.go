package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

// Une data URL plus courte correspond en pratique à une capture vide.
const minCaptureDataURLLen = 1000

type activeChecker interface {
	Active(id string) bool
}

// Notifier traite un changement détecté: compteur, capture, historique, notification.
type Notifier struct {
	logger   zerolog.Logger
	registry *Registry
	host     ports.PageHost
	active   activeChecker
	writer   ports.SnapshotWriter
	bus      ports.EventBus
	settings func(ctx context.Context) (domain.Settings, error)

	now func() time.Time
}

func NewNotifier(logger zerolog.Logger, registry *Registry, host ports.PageHost, active activeChecker, writer ports.SnapshotWriter, bus ports.EventBus, settings func(ctx context.Context) (domain.Settings, error)) *Notifier {
	return &Notifier{
		logger:   logger,
		registry: registry,
		host:     host,
		active:   active,
		writer:   writer,
		bus:      bus,
		settings: settings,
		now:      time.Now,
	}
}

// HandleContentChange est best-effort: toute erreur plateforme est loggée
// et la capture abandonnée. Une tracking inactive est ignorée.
func (n *Notifier) HandleContentChange(ctx context.Context, id string) error {
	if n.active != nil && !n.active.Active(id) {
		n.logger.Warn().Str("tracking_id", id).Msg("content change for inactive tracking, ignored")
		return nil
	}
	rec, err := n.registry.Get(id)
	if err != nil {
		return nil
	}

	settings := domain.DefaultSettings()
	if n.settings != nil {
		if s, err := n.settings(ctx); err == nil {
			settings = s
		}
	}

	n.recordChange(ctx, id)

	if err := n.host.Focus(ctx, id); err != nil {
		n.logger.Warn().Err(err).Str("tracking_id", id).Msg("focus tab failed")
	}

	if d := time.Duration(settings.CaptureDelayMs) * time.Millisecond; d > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}

	png, err := n.host.Capture(ctx, id)
	if err != nil {
		n.logger.Error().Err(err).Str("tracking_id", id).Msg("snapshot failed")
		return nil
	}
	dataURL := domain.PNGDataURL(png)
	if len(dataURL) < minCaptureDataURLLen {
		n.logger.Error().Str("tracking_id", id).Int("size", len(dataURL)).Msg("captured image appears blank or too small")
		return nil
	}
	n.logger.Info().Str("tracking_id", id).Int("size", len(dataURL)).Msg("snapshot captured")

	at := n.now()
	if settings.SaveSnapshotFiles && n.writer != nil {
		path, err := n.writer.WriteSnapshot(ctx, settings.SnapshotDir, id, at, png)
		if err != nil {
			n.logger.Error().Err(err).Str("tracking_id", id).Msg("snapshot file write failed")
		} else {
			n.logger.Debug().Str("tracking_id", id).Str("path", path).Msg("snapshot file written")
		}
	}

	snap := domain.Snapshot{Timestamp: at.UnixMilli(), ImageData: dataURL, URL: rec.URL}
	if _, err := n.registry.Mutate(ctx, id, func(r *domain.TrackingRecord) {
		r.Snapshots = domain.AppendSnapshot(r.Snapshots, snap)
		ts := snap.Timestamp
		r.LastRefresh = &ts
	}); err != nil {
		return nil
	}
	n.publish(ports.TopicSnapshotSaved, map[string]any{"trackingId": id, "timestamp": snap.Timestamp, "url": snap.URL})

	n.publish(ports.TopicNotification, ports.Notification{
		ID:         "notify-" + id + "-" + xid.New().String(),
		TrackingID: id,
		Title:      "Change Detected!",
		Message:    "Update on: " + domain.Hostname(rec.URL),
		URL:        rec.URL,
		CreatedAt:  at.UTC(),
	})
	return nil
}

// recordChange incrémente changeCount puis diffuse CHANGE_DETECTED.
func (n *Notifier) recordChange(ctx context.Context, id string) {
	if _, err := n.registry.Mutate(ctx, id, func(r *domain.TrackingRecord) {
		r.ChangeCount++
	}); err != nil {
		return
	}
	b, err := domain.EncodeMessage(domain.ChangeDetected{TrackingID: id})
	if err != nil || n.bus == nil {
		return
	}
	n.bus.Publish(ports.TopicChangeDetected, b)
}

func (n *Notifier) publish(topic string, v any) {
	if n.bus == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	n.bus.Publish(topic, b)
}
