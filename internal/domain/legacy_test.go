package domain

import (
	"errors"
	"testing"
)

func TestLegacyState_ToRecord(t *testing.T) {
	snaps := make([]Snapshot, 0, MaxSnapshots+3)
	for i := 0; i < MaxSnapshots+3; i++ {
		snaps = append(snaps, Snapshot{Timestamp: int64(i), ImageData: "data:image/png;base64,AA", URL: "https://news.example.com/"})
	}
	legacy := LegacyState{IsTracking: true, CurrentTrackedURL: " https://news.example.com/ ", ChangeCount: 4, Snapshots: snaps}

	rec, err := legacy.ToRecord("tracking_x")
	if err != nil {
		t.Fatalf("ToRecord: %v", err)
	}
	if rec.ID != "tracking_x" || rec.URL != "https://news.example.com/" || rec.Name != "news.example.com" {
		t.Fatalf("unexpected identity: %+v", rec)
	}
	if !rec.IsTracking || rec.MinInterval != 30 || rec.MaxInterval != 60 || rec.ChangeCount != 4 {
		t.Fatalf("unexpected fields: %+v", rec)
	}
	if len(rec.Snapshots) != MaxSnapshots || rec.Snapshots[0].Timestamp != 3 {
		t.Fatalf("snapshots should keep the %d most recent, got %d starting at %d", MaxSnapshots, len(rec.Snapshots), rec.Snapshots[0].Timestamp)
	}
}

func TestLegacyState_ToRecordRejectsBadURL(t *testing.T) {
	if _, err := (LegacyState{}).ToRecord("tracking_x"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("empty url: want ErrInvalidURL, got %v", err)
	}
	if _, err := (LegacyState{CurrentTrackedURL: "chrome://extensions"}).ToRecord("tracking_x"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("non-http url: want ErrInvalidURL, got %v", err)
	}
}
