package ports

import (
	"context"
	"time"
)

type Notification struct {
	ID         string    `json:"id"`
	TrackingID string    `json:"trackingId"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NotificationSink affiche ou relaie une notification utilisateur.
type NotificationSink interface {
	Notify(ctx context.Context, n Notification) error
}

// SnapshotWriter écrit le PNG d'une capture (équivalent du téléchargement).
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, dir, trackingID string, at time.Time, png []byte) (string, error)
}
