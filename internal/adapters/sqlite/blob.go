package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Les deux tables ont le même schéma (key, value_json, updated_at): une valeur
// JSON par clé.
const (
	tableKV       = "kv"
	tableSettings = "settings"
)

// errDecode marque une valeur présente mais illisible.
var errDecode = errors.New("sqlite: undecodable value")

// getJSON décode la valeur de key dans dst; found=false si la clé n'existe pas.
func getJSON(ctx context.Context, db *sql.DB, table, key string, dst any) (found bool, err error) {
	var b []byte
	err = db.QueryRowContext(ctx, `SELECT value_json FROM `+table+` WHERE key = ?`, key).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return true, fmt.Errorf("%w %s/%s: %v", errDecode, table, key, err)
	}
	return true, nil
}

// putJSON écrit v sous key (upsert).
func putJSON(ctx context.Context, db *sql.DB, table, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sqlite: encode %s/%s: %w", table, key, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO `+table+`(key, value_json, updated_at)
		VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
	`, key, b, time.Now().UTC().Format(time.RFC3339))
	return err
}
