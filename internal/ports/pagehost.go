package ports

import (
	"context"
	"errors"
)

// ErrCaptureUnsupported est renvoyé par les hôtes sans rendu graphique.
var ErrCaptureUnsupported = errors.New("screenshot capture unsupported")

// PageHost expose les capacités de la plateforme hôte: un onglet par tracking.
// Un onglet absent n'est pas une erreur pour Close/Focus.
type PageHost interface {
	// Open trouve ou ouvre l'onglet de la tracking (en arrière-plan).
	Open(ctx context.Context, trackingID, url string) error
	// Reload recharge l'onglet sans cache et attend la fin du chargement.
	Reload(ctx context.Context, trackingID, url string) error
	// VisibleText renvoie le texte visible du document courant (innerText du body).
	VisibleText(ctx context.Context, trackingID string) (string, error)
	Focus(ctx context.Context, trackingID string) error
	// Capture renvoie une capture PNG de la zone visible.
	Capture(ctx context.Context, trackingID string) ([]byte, error)
	Close(trackingID string) error
}

// Gate décide si une URL peut être rechargée maintenant (robots.txt, cadence par hôte).
type Gate interface {
	Allowed(ctx context.Context, url string) bool
	Wait(ctx context.Context, url string) error
}
