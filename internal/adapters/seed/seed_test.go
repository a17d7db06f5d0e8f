package seed

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `
trackings:
  - url: https://example.com/prices
    name: Prix
    min_interval: 30
    max_interval: 90
    start: true
  - url: https://example.org/
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	reqs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(reqs))
	}
	if reqs[0].Name != "Prix" || reqs[0].MinInterval != 30 || reqs[0].MaxInterval != 90 || !reqs[0].Start {
		t.Fatalf("unexpected first entry: %+v", reqs[0])
	}
	if reqs[1].URL != "https://example.org/" || reqs[1].Start {
		t.Fatalf("unexpected second entry: %+v", reqs[1])
	}
}

func TestParse_MissingURL(t *testing.T) {
	if _, err := Parse([]byte("trackings:\n  - name: x\n")); err == nil {
		t.Fatalf("expected error for missing url")
	}
}
