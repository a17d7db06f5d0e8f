package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
)

const settingsKey = "default"

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get décode par-dessus les valeurs par défaut: une clé absente ou un champ
// ajouté depuis la dernière écriture garde son défaut. Un blob illisible
// retombe entièrement sur les défauts.
func (r *SettingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	s := domain.DefaultSettings()
	_, err := getJSON(ctx, r.db, tableSettings, settingsKey, &s)
	switch {
	case errors.Is(err, errDecode):
		return domain.DefaultSettings(), nil
	case err != nil:
		return domain.Settings{}, err
	}
	return s, nil
}

func (r *SettingsRepository) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	if err := putJSON(ctx, r.db, tableSettings, settingsKey, settings); err != nil {
		return domain.Settings{}, err
	}
	return r.Get(ctx)
}
