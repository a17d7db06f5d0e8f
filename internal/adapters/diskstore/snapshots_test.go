package diskstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileName(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 123_000_000, time.UTC)
	if got, want := FileName(at), "snap-2024-03-09T14-05-07-123Z.png"; got != want {
		t.Fatalf("FileName: want %q, got %q", want, got)
	}
}

func TestSnapshotWriter_WritesUnderTrackingDir(t *testing.T) {
	base := t.TempDir()
	w := NewSnapshotWriter(base)
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	data := []byte("\x89PNG fake")

	path, err := w.WriteSnapshot(context.Background(), "page-tracker", "tracking_1", at, data)
	if err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	want := filepath.Join(base, "page-tracker", "tracking_1", "snap-2024-03-09T14-05-07-000Z.png")
	if path != want {
		t.Fatalf("path: want %q, got %q", want, path)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("content mismatch")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected only the snapshot file, got %d entries", len(entries))
	}
}

func TestSnapshotWriter_RejectsTraversal(t *testing.T) {
	w := NewSnapshotWriter(t.TempDir())
	for _, id := range []string{"", "..", "../x", "a/b"} {
		if _, err := w.WriteSnapshot(context.Background(), "d", id, time.Now(), []byte("x")); err == nil {
			t.Fatalf("expected error for id %q", id)
		}
	}
}
