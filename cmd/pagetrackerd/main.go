package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Guilhem-Bonnet/page-tracker/internal/adapters/chromehost"
	"github.com/Guilhem-Bonnet/page-tracker/internal/adapters/diskstore"
	"github.com/Guilhem-Bonnet/page-tracker/internal/adapters/httpapi"
	"github.com/Guilhem-Bonnet/page-tracker/internal/adapters/httphost"
	"github.com/Guilhem-Bonnet/page-tracker/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/page-tracker/internal/adapters/notify"
	"github.com/Guilhem-Bonnet/page-tracker/internal/adapters/politeness"
	"github.com/Guilhem-Bonnet/page-tracker/internal/adapters/postgres"
	"github.com/Guilhem-Bonnet/page-tracker/internal/adapters/seed"
	"github.com/Guilhem-Bonnet/page-tracker/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/page-tracker/internal/app"
	"github.com/Guilhem-Bonnet/page-tracker/internal/buildinfo"
	"github.com/Guilhem-Bonnet/page-tracker/internal/config"
	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	addr := flag.String("addr", cfg.Addr, "Adresse d'écoute (ex: 127.0.0.1:8080)")
	dbPath := flag.String("db", cfg.DBPath, "Chemin SQLite (ex: page-tracker.db)")
	browser := flag.String("browser", cfg.Browser, "Hôte de pages: chrome|http")
	seedFile := flag.String("seed", cfg.SeedFile, "Fichier YAML de trackings à importer au démarrage")
	flag.Parse()

	cfg, err = cfg.Apply(config.Overrides{Addr: *addr, DBPath: *dbPath, Browser: *browser, SeedFile: *seedFile})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid flags")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("app", "pagetrackerd").Logger()
	log.Logger = logger

	logger.Info().Interface("build", buildinfo.Current()).Str("db_driver", cfg.DBDriver).Str("browser", cfg.Browser).Msg("starting")

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx := context.Background()

	store, settingsRepo, closeDB, err := openStorage(ctx, logger, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open db")
	}
	defer closeDB()

	registry := app.NewRegistry(logger.With().Str("component", "registry").Logger(), store)
	if err := registry.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load trackings")
	}
	settingsSvc := app.NewSettingsService(settingsRepo)
	current := domain.DefaultSettings()
	if s, err := settingsSvc.Get(ctx); err == nil {
		current = s
	}

	bus := memorybus.New()
	defer bus.Close()

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = buildinfo.UserAgent()
	}

	var host ports.PageHost
	switch cfg.Browser {
	case "http":
		host = httphost.New(logger.With().Str("component", "httphost").Logger(), &http.Client{Timeout: cfg.PageTimeout}, userAgent)
	case "chrome":
		ch, err := chromehost.New(shutdownCtx, logger.With().Str("component", "chromehost").Logger(), chromehost.Options{
			RemoteURL: cfg.ChromeRemote,
			Headless:  cfg.Headless,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.PageTimeout,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to start browser")
		}
		defer ch.Shutdown()
		host = ch
	}

	loadLimiter := app.NewLoadLimiter(current.MaxConcurrentLoads)

	gate := politeness.New(logger.With().Str("component", "politeness").Logger(), nil, politeness.Options{
		UserAgent: userAgent,
		Every:     cfg.HostRate,
		Enabled: func(ctx context.Context) bool {
			s, err := settingsSvc.Get(ctx)
			return err == nil && s.RespectRobots
		},
	})

	detector := app.NewChangeDetector(logger.With().Str("component", "detector").Logger(), registry)

	schedOpts := app.DefaultSchedulerOptions()
	schedOpts.SettleDelay = func(ctx context.Context) time.Duration {
		s, err := settingsSvc.Get(ctx)
		if err != nil {
			return time.Duration(domain.DefaultSettings().SettleDelayMs) * time.Millisecond
		}
		return time.Duration(s.SettleDelayMs) * time.Millisecond
	}
	scheduler := app.NewScheduler(shutdownCtx, logger.With().Str("component", "scheduler").Logger(), registry, host, detector, bus, schedOpts)
	scheduler.SetGate(gate)
	scheduler.SetLimiter(loadLimiter)

	writer := diskstore.NewSnapshotWriter(cfg.SnapshotBase)
	notifier := app.NewNotifier(logger.With().Str("component", "notifier").Logger(), registry, host, scheduler, writer, bus, settingsSvc.Get)
	trackingsSvc := app.NewTrackingService(logger.With().Str("component", "trackings").Logger(), registry, scheduler, host, bus, settingsSvc.Get)
	dispatcher := app.NewDispatcher(logger.With().Str("component", "dispatcher").Logger(), trackingsSvc, notifier, bus)
	detector.Emit = dispatcher.Emit

	// Notifications: bus -> relay -> pool -> sinks (log + webhook optionnel).
	webhook := notify.NewWebhookSink(logger.With().Str("component", "webhook").Logger(), func(ctx context.Context) string {
		s, err := settingsSvc.Get(ctx)
		if err != nil {
			return ""
		}
		return s.WebhookURL
	})
	relay := app.NewNotificationRelay(logger.With().Str("component", "notifications").Logger(), bus, cfg.NotifyWorkers,
		notify.NewLogSink(logger.With().Str("component", "notifications").Logger()), webhook)
	go relay.Run(shutdownCtx)

	if cfg.SeedFile != "" {
		reqs, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			logger.Fatal().Err(err).Str("file", cfg.SeedFile).Msg("failed to read seed file")
		}
		n, err := trackingsSvc.Import(ctx, reqs)
		if err != nil {
			logger.Error().Err(err).Int("created", n).Msg("seed import failed")
		} else {
			logger.Info().Int("created", n).Int("entries", len(reqs)).Msg("seed imported")
		}
	}

	scheduler.Restore(shutdownCtx)
	logger.Info().Int("active", scheduler.ActiveCount()).Msg("trackings restored")

	srv := httpapi.NewServer(logger, httpapi.Options{
		Trackings:   trackingsSvc,
		Dispatcher:  dispatcher,
		Settings:    settingsSvc,
		Bus:         bus,
		LoadLimiter: loadLimiter,
		OnSettingsUpdated: func(updated domain.Settings) {
			logger.Info().Int("max_concurrent_loads", updated.MaxConcurrentLoads).Bool("respect_robots", updated.RespectRobots).Msg("settings updated")
		},
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
	scheduler.Close()
	if err := registry.Flush(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("final registry flush failed")
	}
	logger.Info().Msg("bye")
}

// openStorage renvoie le stockage du registre et des réglages selon PT_DB_DRIVER.
func openStorage(ctx context.Context, logger zerolog.Logger, cfg config.Config) (ports.RegistryStore, ports.SettingsRepository, func(), error) {
	var (
		store    ports.RegistryStore
		settings ports.SettingsRepository
		closer   io.Closer
	)
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(ctx, logger.With().Str("component", "postgres").Logger(), cfg.DBURL, 0)
		if err != nil {
			return nil, nil, nil, err
		}
		store, settings, closer = postgres.NewRegistryRepository(db.SQL), postgres.NewSettingsRepository(db.SQL), db
	default:
		db, err := sqlite.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, nil, err
		}
		store, settings, closer = sqlite.NewRegistryRepository(db.SQL), sqlite.NewSettingsRepository(db.SQL), db
	}
	return store, settings, func() { _ = closer.Close() }, nil
}
