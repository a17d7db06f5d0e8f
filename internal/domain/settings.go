package domain

type Settings struct {
	// Répertoire racine des captures PNG (équivalent du dossier de téléchargements).
	SnapshotDir       string `json:"snapshotDir"`
	SaveSnapshotFiles bool   `json:"saveSnapshotFiles"`

	// Nombre de chargements de pages simultanés.
	MaxConcurrentLoads int `json:"maxConcurrentLoads"`

	// Délais d'attente après chargement (détection) et avant capture.
	SettleDelayMs  int `json:"settleDelayMs"`
	CaptureDelayMs int `json:"captureDelayMs"`

	// Bornes proposées à la création d'une tracking.
	DefaultMinInterval int `json:"defaultMinInterval"`
	DefaultMaxInterval int `json:"defaultMaxInterval"`

	// Notifications sortantes (optionnel).
	WebhookURL string `json:"webhookUrl"`

	// Respecter robots.txt avant chaque refresh.
	RespectRobots bool `json:"respectRobots"`
}

func DefaultSettings() Settings {
	return Settings{
		SnapshotDir:        "page-tracker",
		SaveSnapshotFiles:  true,
		MaxConcurrentLoads: 2,
		SettleDelayMs:      1000,
		CaptureDelayMs:     1500,
		DefaultMinInterval: DefaultMinInterval,
		DefaultMaxInterval: DefaultMaxInterval,
		RespectRobots:      false,
	}
}
