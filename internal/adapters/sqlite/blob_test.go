package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
)

func TestBlobs_UndecodableValues(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	for _, table := range []string{tableKV, tableSettings} {
		if _, err := db.SQL.ExecContext(ctx, `INSERT INTO `+table+`(key, value_json, updated_at) VALUES(?, ?, ?)`,
			map[string]string{tableKV: TrackingsKey, tableSettings: settingsKey}[table], []byte("{not json"), "2024-01-01T00:00:00Z"); err != nil {
			t.Fatalf("seed %s: %v", table, err)
		}
	}

	if _, err := NewRegistryRepository(db.SQL).Load(ctx); !errors.Is(err, errDecode) {
		t.Fatalf("corrupted registry: want errDecode, got %v", err)
	}

	s, err := NewSettingsRepository(db.SQL).Get(ctx)
	if err != nil {
		t.Fatalf("corrupted settings should fall back to defaults, got %v", err)
	}
	if s != domain.DefaultSettings() {
		t.Fatalf("want defaults, got %+v", s)
	}
}

func TestBlobs_MissingKey(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	var v map[string]int
	found, err := getJSON(ctx, db.SQL, tableKV, "absent", &v)
	if err != nil || found {
		t.Fatalf("missing key: found=%v err=%v", found, err)
	}
	if err := putJSON(ctx, db.SQL, tableKV, "absent", map[string]int{"n": 1}); err != nil {
		t.Fatalf("putJSON: %v", err)
	}
	found, err = getJSON(ctx, db.SQL, tableKV, "absent", &v)
	if err != nil || !found || v["n"] != 1 {
		t.Fatalf("after put: found=%v err=%v v=%v", found, err, v)
	}
}
