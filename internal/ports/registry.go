package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
)

// RegistryStore persiste la table des trackings sous une clé unique
// (tableau JSON complet, réécrit à chaque sauvegarde).
type RegistryStore interface {
	Load(ctx context.Context) ([]domain.TrackingRecord, error)
	Save(ctx context.Context, records []domain.TrackingRecord) error
}
