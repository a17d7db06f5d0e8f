package domain

import (
	"encoding/base64"
	"errors"
	"strings"
)

// MaxSnapshots borne l'historique de captures d'une tracking.
const MaxSnapshots = 20

const pngDataURLPrefix = "data:image/png;base64,"

var ErrNotPNGDataURL = errors.New("not a png data url")

type Snapshot struct {
	// Timestamp unix en millisecondes.
	Timestamp int64  `json:"timestamp"`
	ImageData string `json:"imageData"`
	URL       string `json:"url"`
}

// AppendSnapshot ajoute snap en fin d'historique et évince les plus anciennes
// au-delà de MaxSnapshots. La slice d'entrée n'est jamais modifiée.
func AppendSnapshot(ring []Snapshot, snap Snapshot) []Snapshot {
	out := make([]Snapshot, 0, len(ring)+1)
	out = append(out, ring...)
	out = append(out, snap)
	if len(out) > MaxSnapshots {
		out = out[len(out)-MaxSnapshots:]
	}
	return out
}

func PNGDataURL(png []byte) string {
	return pngDataURLPrefix + base64.StdEncoding.EncodeToString(png)
}

func DecodePNGDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, pngDataURLPrefix) {
		return nil, ErrNotPNGDataURL
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, pngDataURLPrefix))
}
