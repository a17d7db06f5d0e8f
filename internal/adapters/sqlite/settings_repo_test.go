package sqlite

import (
	"context"
	"testing"

	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
)

func TestSettingsRepository_DefaultsAndPersist(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewSettingsRepository(db.SQL)

	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get(default): %v", err)
	}
	if got.SnapshotDir == "" {
		t.Fatalf("expected default SnapshotDir, got empty")
	}
	if got.CaptureDelayMs != 1500 {
		t.Fatalf("CaptureDelayMs: want 1500, got %d", got.CaptureDelayMs)
	}

	want := domain.DefaultSettings()
	want.SnapshotDir = "/tmp/snaps"
	want.MaxConcurrentLoads = 3
	want.WebhookURL = "https://hooks.example.com/pt"
	want.RespectRobots = true

	updated, err := repo.Put(ctx, want)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if updated != want {
		t.Fatalf("Put: want %+v, got %+v", want, updated)
	}

	got2, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get(after Put): %v", err)
	}
	if got2.SnapshotDir != want.SnapshotDir {
		t.Fatalf("SnapshotDir after Put: want %q, got %q", want.SnapshotDir, got2.SnapshotDir)
	}
}

func TestSettingsRepository_MissingFieldsKeepDefaults(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.SQL.ExecContext(ctx, `INSERT INTO settings(key, value_json, updated_at) VALUES('default', '{"snapshotDir":"x"}', '')`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := NewSettingsRepository(db.SQL).Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SnapshotDir != "x" {
		t.Fatalf("SnapshotDir: want %q, got %q", "x", got.SnapshotDir)
	}
	if got.SettleDelayMs != domain.DefaultSettings().SettleDelayMs {
		t.Fatalf("SettleDelayMs: want default, got %d", got.SettleDelayMs)
	}
}
