package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("PT_DB_DRIVER", "")
	t.Setenv("PT_BROWSER", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8080" || cfg.DBDriver != "sqlite" || cfg.Browser != "chrome" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Headless || cfg.PageTimeout != 30*time.Second {
		t.Fatalf("unexpected browser defaults: %+v", cfg)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PT_ADDR", ":9090")
	t.Setenv("PT_BROWSER", "HTTP")
	t.Setenv("PT_HOST_RATE", "2s")
	t.Setenv("PT_DB_DRIVER", "postgres")
	t.Setenv("PT_DB_URL", "postgres://u:p@localhost/pt")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.Browser != "http" || cfg.HostRate != 2*time.Second || cfg.DBDriver != "postgres" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("PT_DB_DRIVER", "postgres")
	t.Setenv("PT_DB_URL", "")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("postgres without url should fail")
	}

	t.Setenv("PT_DB_DRIVER", "sqlite")
	t.Setenv("PT_BROWSER", "lynx")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("unknown browser should fail")
	}
}

func TestFromEnv_BlankValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("PT_DB_DRIVER", "  ")
	t.Setenv("PT_BROWSER", "")
	t.Setenv("PT_ADDR", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.DBDriver != "sqlite" || cfg.Browser != "chrome" || cfg.Addr != "127.0.0.1:8080" {
		t.Fatalf("blank values should use defaults: %+v", cfg)
	}
}

func TestApply_ValidatesFlagValues(t *testing.T) {
	t.Setenv("PT_DB_DRIVER", "")
	t.Setenv("PT_BROWSER", "")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	got, err := cfg.Apply(Overrides{Addr: ":9999", Browser: "HTTP", SeedFile: "seed.yaml"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.Addr != ":9999" || got.Browser != "http" || got.SeedFile != "seed.yaml" || got.DBPath != cfg.DBPath {
		t.Fatalf("unexpected config: %+v", got)
	}

	if _, err := cfg.Apply(Overrides{Browser: "firefox"}); err == nil {
		t.Fatalf("unknown -browser value should fail")
	}
}
