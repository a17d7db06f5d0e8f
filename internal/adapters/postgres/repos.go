package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
)

const (
	trackingsKey = "trackings"
	settingsKey  = "default"
)

type RegistryRepository struct {
	db *sql.DB
}

func NewRegistryRepository(db *sql.DB) *RegistryRepository {
	return &RegistryRepository{db: db}
}

func (r *RegistryRepository) Load(ctx context.Context) ([]domain.TrackingRecord, error) {
	b, err := getJSON(ctx, r.db, "kv", trackingsKey)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return []domain.TrackingRecord{}, nil
	}
	var records []domain.TrackingRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("postgres: decode %s: %w", trackingsKey, err)
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
	b, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return putJSON(ctx, r.db, "kv", trackingsKey, b)
}

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	b, err := getJSON(ctx, r.db, "settings", settingsKey)
	if err != nil {
		return domain.Settings{}, err
	}
	s := domain.DefaultSettings()
	if b == nil {
		return s, nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return domain.DefaultSettings(), nil
	}
	return s, nil
}

func (r *SettingsRepository) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	b, err := json.Marshal(settings)
	if err != nil {
		return domain.Settings{}, err
	}
	if err := putJSON(ctx, r.db, "settings", settingsKey, b); err != nil {
		return domain.Settings{}, err
	}
	return r.Get(ctx)
}

// table est une constante interne ("kv" ou "settings"), jamais une entrée utilisateur.
func getJSON(ctx context.Context, db *sql.DB, table, key string) ([]byte, error) {
	var b []byte
	err := db.QueryRowContext(ctx, `SELECT value_json FROM `+table+` WHERE key = $1`, key).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func putJSON(ctx context.Context, db *sql.DB, table, key string, b []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO `+table+`(key, value_json, updated_at)
		VALUES($1, $2::jsonb, now())
		ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
	`, key, string(b))
	return err
}
