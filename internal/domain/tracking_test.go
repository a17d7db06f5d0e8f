package domain

import (
	"errors"
	"testing"
)

func TestValidateTrackingURL(t *testing.T) {
	ok := []string{"https://example.com", "http://example.com/a?b=c", "  https://example.com/  "}
	for _, raw := range ok {
		if _, err := ValidateTrackingURL(raw); err != nil {
			t.Fatalf("ValidateTrackingURL(%q): %v", raw, err)
		}
	}
	bad := []string{"", "example.com", "ftp://example.com", "https://", "javascript:alert(1)", "chrome://settings"}
	for _, raw := range bad {
		if _, err := ValidateTrackingURL(raw); !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("ValidateTrackingURL(%q): want ErrInvalidURL, got %v", raw, err)
		}
	}
}

func TestHostname(t *testing.T) {
	if got := Hostname("https://shop.example.com:8443/item"); got != "shop.example.com" {
		t.Fatalf("Hostname: got %q", got)
	}
	if got := Hostname("not a url"); got != "not a url" {
		t.Fatalf("Hostname fallback: got %q", got)
	}
}

func TestTrackingRecord_CloneIsDeep(t *testing.T) {
	left, ts := 5, int64(10)
	rec := TrackingRecord{ID: "a", TimeLeft: &left, LastRefresh: &ts, Snapshots: []Snapshot{{Timestamp: 1}}}
	c := rec.Clone()
	*c.TimeLeft = 99
	*c.LastRefresh = 99
	c.Snapshots[0].Timestamp = 99
	if *rec.TimeLeft != 5 || *rec.LastRefresh != 10 || rec.Snapshots[0].Timestamp != 1 {
		t.Fatalf("clone shares state with original")
	}

	empty := TrackingRecord{ID: "b"}.Clone()
	if empty.Snapshots == nil {
		t.Fatalf("clone should normalize nil snapshots to an empty slice")
	}
}
