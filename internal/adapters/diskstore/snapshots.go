// Package diskstore écrit les captures PNG sur disque:
// <dir>/<trackingID>/snap-<horodatage ISO, ':' et '.' remplacés par '-'>.png
package diskstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type SnapshotWriter struct {
	// Base préfixe les répertoires relatifs (réglage SnapshotDir).
	Base string
}

func NewSnapshotWriter(base string) *SnapshotWriter {
	return &SnapshotWriter{Base: base}
}

// FileName renvoie le nom de fichier d'une capture prise à at.
func FileName(at time.Time) string {
	ts := at.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return "snap-" + ts + ".png"
}

func (w *SnapshotWriter) WriteSnapshot(ctx context.Context, dir, trackingID string, at time.Time, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if trackingID == "" || trackingID != filepath.Base(trackingID) || trackingID == "." || trackingID == ".." {
		return "", fmt.Errorf("diskstore: invalid tracking id %q", trackingID)
	}
	if !filepath.IsAbs(dir) && w.Base != "" {
		dir = filepath.Join(w.Base, dir)
	}

	target := filepath.Join(dir, trackingID)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(target, FileName(at))

	// Écriture atomique: fichier temporaire puis rename.
	tmp, err := os.CreateTemp(target, ".snap-*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(png); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}
