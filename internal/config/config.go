package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config du démon, lue depuis l'environnement (préfixe PT_) et un éventuel .env.
type Config struct {
	Addr string `envconfig:"ADDR" default:"127.0.0.1:8080"`

	// DBDriver: sqlite (fichier local) ou postgres (DBURL requis).
	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBPath   string `envconfig:"DB_PATH" default:"page-tracker.db"`
	DBURL    string `envconfig:"DB_URL"`

	// Browser: chrome (chromedp, captures possibles) ou http (GET + extraction texte).
	Browser      string        `envconfig:"BROWSER" default:"chrome"`
	ChromeRemote string        `envconfig:"CHROME_REMOTE"`
	Headless     bool          `envconfig:"HEADLESS" default:"true"`
	PageTimeout  time.Duration `envconfig:"PAGE_TIMEOUT" default:"30s"`
	UserAgent    string        `envconfig:"USER_AGENT"`

	// HostRate: écart minimal entre deux chargements d'un même hôte (0 = aucun).
	HostRate time.Duration `envconfig:"HOST_RATE" default:"0s"`

	// SeedFile: YAML de trackings importées au démarrage (URLs déjà connues ignorées).
	SeedFile string `envconfig:"SEED_FILE"`
	// SnapshotBase préfixe settings.snapshotDir quand il est relatif.
	SnapshotBase string `envconfig:"SNAPSHOT_BASE"`

	NotifyWorkers int    `envconfig:"NOTIFY_WORKERS" default:"2"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
}

const prefix = "PT"

// Load lit .env (s'il existe) puis l'environnement.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			return Config{}, fmt.Errorf("config: .env found but could not be loaded: %w", err)
		}
	}
	return FromEnv()
}

// FromEnv lit uniquement l'environnement courant.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, cfg.Validate()
}

// Overrides porte les valeurs des flags de pagetrackerd; vide = garder la config.
type Overrides struct {
	Addr     string
	DBPath   string
	Browser  string
	SeedFile string
}

// Apply applique les flags puis revalide: un -browser inconnu échoue comme PT_BROWSER.
func (c Config) Apply(o Overrides) (Config, error) {
	if o.Addr != "" {
		c.Addr = o.Addr
	}
	if o.DBPath != "" {
		c.DBPath = o.DBPath
	}
	if o.Browser != "" {
		c.Browser = o.Browser
	}
	if o.SeedFile != "" {
		c.SeedFile = o.SeedFile
	}
	c.normalize()
	return c, c.Validate()
}

// normalize: envconfig n'applique default que pour une variable absente;
// une valeur vide (ligne "PT_BROWSER=" d'un .env) retombe sur le défaut.
func (c *Config) normalize() {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	if c.DBDriver == "" {
		c.DBDriver = "sqlite"
	}
	c.Browser = strings.ToLower(strings.TrimSpace(c.Browser))
	if c.Browser == "" {
		c.Browser = "chrome"
	}
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = "127.0.0.1:8080"
	}
	if strings.TrimSpace(c.DBPath) == "" {
		c.DBPath = "page-tracker.db"
	}
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
	case "postgres":
		if c.DBURL == "" {
			return errors.New("config: PT_DB_URL is required with PT_DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("config: unknown PT_DB_DRIVER %q (sqlite|postgres)", c.DBDriver)
	}
	switch c.Browser {
	case "chrome", "http":
	default:
		return fmt.Errorf("config: unknown PT_BROWSER %q (chrome|http)", c.Browser)
	}
	return nil
}
