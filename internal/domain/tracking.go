package domain

import (
	"errors"
	"net/url"
	"strings"
)

const (
	DefaultMinInterval = 30
	DefaultMaxInterval = 60
)

var ErrInvalidURL = errors.New("invalid tracking url")

// TrackingRecord est l'état persisté d'une page suivie.
// Les noms JSON reprennent le schéma de stockage historique (clé "trackings").
type TrackingRecord struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name"`

	IsTracking  bool `json:"isTracking"`
	MinInterval int  `json:"minInterval"`
	MaxInterval int  `json:"maxInterval"`

	LastContentHash string `json:"lastContentHash,omitempty"`

	// TimeLeft est le compte à rebours (secondes) avant le prochain refresh, nil si inactif.
	TimeLeft    *int   `json:"timeLeft"`
	ChangeCount int    `json:"changeCount"`
	// LastRefresh est un timestamp unix en millisecondes, nil tant qu'aucune capture.
	LastRefresh *int64 `json:"lastRefresh"`

	Snapshots []Snapshot `json:"snapshots"`
}

// Clone renvoie une copie profonde (les pointeurs et la slice ne sont pas partagés).
func (t TrackingRecord) Clone() TrackingRecord {
	out := t
	if t.TimeLeft != nil {
		v := *t.TimeLeft
		out.TimeLeft = &v
	}
	if t.LastRefresh != nil {
		v := *t.LastRefresh
		out.LastRefresh = &v
	}
	out.Snapshots = append([]Snapshot(nil), t.Snapshots...)
	if out.Snapshots == nil {
		out.Snapshots = []Snapshot{}
	}
	return out
}

// NormalizeIntervals applique les bornes par défaut et garantit 1 <= min <= max.
func NormalizeIntervals(min, max int) (int, int) {
	if min <= 0 {
		min = DefaultMinInterval
	}
	if max <= 0 {
		max = DefaultMaxInterval
	}
	if max < min {
		max = min
	}
	return min, max
}

// ValidateTrackingURL accepte uniquement une URL absolue http(s).
func ValidateTrackingURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrInvalidURL
	}
	if u.Host == "" {
		return nil, ErrInvalidURL
	}
	return u, nil
}

// Hostname renvoie l'hôte d'une URL, ou l'URL brute si elle ne se parse pas.
func Hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
