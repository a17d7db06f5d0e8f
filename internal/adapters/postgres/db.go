// Package postgres est le stockage alternatif du registre et des réglages
// (PT_DB_DRIVER=postgres), via le driver database/sql de pgx.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/Guilhem-Bonnet/page-tracker/internal/adapters/sqlmigrate"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	SQL *sql.DB
}

// Open se connecte à url en réessayant (la base peut démarrer après le service),
// puis applique les migrations.
func Open(ctx context.Context, logger zerolog.Logger, url string, attempts int) (*DB, error) {
	if attempts <= 0 {
		attempts = 10
	}
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	var pingErr error
	for i := 0; i < attempts; i++ {
		ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
		pingErr = db.PingContext(ctxPing)
		cancel()
		if pingErr == nil {
			break
		}
		logger.Warn().Err(pingErr).Int("attempt", i+1).Msg("waiting for postgres")
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: could not connect after %d attempts: %w", attempts, pingErr)
	}

	wrapper := &DB{SQL: db}
	if err := sqlmigrate.Apply(ctx, db, sqlmigrate.Postgres, migrationsFS, "migrations"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return wrapper, nil
}

func (d *DB) Close() error {
	return d.SQL.Close()
}
