package sqlite

import (
	"context"
	"database/sql"

	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
)

// TrackingsKey est la clé unique qui porte le tableau JSON des trackings.
const TrackingsKey = "trackings"

// RegistryRepository stocke le registre complet sous une seule clé de la table kv.
type RegistryRepository struct {
	db *sql.DB
}

func NewRegistryRepository(db *sql.DB) *RegistryRepository {
	return &RegistryRepository{db: db}
}

func (r *RegistryRepository) Load(ctx context.Context) ([]domain.TrackingRecord, error) {
	var records []domain.TrackingRecord
	if _, err := getJSON(ctx, r.db, tableKV, TrackingsKey, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.TrackingRecord{}
	}
	return records, nil
}

func (r *RegistryRepository) Save(ctx context.Context, records []domain.TrackingRecord) error {
	if records == nil {
		records = []domain.TrackingRecord{}
	}
	return putJSON(ctx, r.db, tableKV, TrackingsKey, records)
}
