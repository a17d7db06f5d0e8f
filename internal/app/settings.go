package app

import (
	"context"
	"strings"

	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
)

type SettingsService struct {
	repo ports.SettingsRepository
}

func NewSettingsService(repo ports.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	return s.repo.Get(ctx)
}

func (s *SettingsService) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	def := domain.DefaultSettings()
	settings.SnapshotDir = strings.TrimSpace(settings.SnapshotDir)
	if settings.SnapshotDir == "" {
		settings.SnapshotDir = def.SnapshotDir
	}
	if settings.MaxConcurrentLoads <= 0 {
		settings.MaxConcurrentLoads = def.MaxConcurrentLoads
	}
	if settings.SettleDelayMs < 0 {
		settings.SettleDelayMs = def.SettleDelayMs
	}
	if settings.CaptureDelayMs < 0 {
		settings.CaptureDelayMs = def.CaptureDelayMs
	}
	settings.DefaultMinInterval, settings.DefaultMaxInterval = domain.NormalizeIntervals(settings.DefaultMinInterval, settings.DefaultMaxInterval)
	settings.WebhookURL = strings.TrimSpace(settings.WebhookURL)
	if settings.WebhookURL != "" {
		if _, err := domain.ValidateTrackingURL(settings.WebhookURL); err != nil {
			return domain.Settings{}, invalid("invalid_webhook_url", "webhookUrl must be an absolute http(s) url", err)
		}
	}
	return s.repo.Put(ctx, settings)
}
