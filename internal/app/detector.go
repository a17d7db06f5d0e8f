package app

import (
	"context"

	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
	"github.com/rs/zerolog"
)

// ChangeDetector compare le hash du texte visible au dernier hash connu.
type ChangeDetector struct {
	logger   zerolog.Logger
	registry *Registry

	// Emit reçoit CONTENT_CHANGED; branché sur le Dispatcher au démarrage.
	Emit func(ctx context.Context, msg domain.Message)
}

func NewChangeDetector(logger zerolog.Logger, registry *Registry) *ChangeDetector {
	return &ChangeDetector{logger: logger, registry: registry}
}

// Observe enregistre le hash de text pour la tracking id et signale un changement.
// Sans hash de référence (première observation), aucun changement n'est signalé.
func (d *ChangeDetector) Observe(ctx context.Context, id, url, text string) bool {
	rec, err := d.registry.Get(id)
	if err != nil || !rec.IsTracking {
		return false
	}

	current := domain.ContentHash(text)
	last := rec.LastContentHash
	changed := last != "" && last != current

	if current != last {
		if _, err := d.registry.Mutate(ctx, id, func(r *domain.TrackingRecord) {
			r.LastContentHash = current
		}); err != nil {
			d.logger.Warn().Err(err).Str("tracking_id", id).Msg("failed to store content hash")
		}
	}

	if changed {
		d.logger.Info().Str("tracking_id", id).Str("url", url).Msg("change detected")
		if d.Emit != nil {
			d.Emit(ctx, domain.ContentChanged{TrackingID: id, URL: url})
		}
	}
	return changed
}
