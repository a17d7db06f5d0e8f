package domain

import "strings"

// LegacyState est l'ancien format à tracking unique
// (clés isTracking, currentTrackedUrl, changeCount, snapshots).
type LegacyState struct {
	IsTracking        bool       `json:"isTracking"`
	CurrentTrackedURL string     `json:"currentTrackedUrl"`
	ChangeCount       int        `json:"changeCount"`
	Snapshots         []Snapshot `json:"snapshots"`
}

// ToRecord convertit l'ancien état en TrackingRecord (intervalles par défaut,
// nom = hôte, au plus MaxSnapshots captures, les plus récentes).
func (l LegacyState) ToRecord(id string) (TrackingRecord, error) {
	u, err := ValidateTrackingURL(l.CurrentTrackedURL)
	if err != nil {
		return TrackingRecord{}, err
	}
	snaps := []Snapshot{}
	for _, s := range l.Snapshots {
		snaps = AppendSnapshot(snaps, s)
	}
	count := l.ChangeCount
	if count < 0 {
		count = 0
	}
	return TrackingRecord{
		ID:          id,
		URL:         strings.TrimSpace(l.CurrentTrackedURL),
		Name:        u.Hostname(),
		IsTracking:  l.IsTracking,
		MinInterval: DefaultMinInterval,
		MaxInterval: DefaultMaxInterval,
		ChangeCount: count,
		Snapshots:   snaps,
	}, nil
}
