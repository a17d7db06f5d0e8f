package app

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

// TrackingService regroupe les opérations utilisateur sur le registre
// et pilote le Scheduler quand isTracking change.
type TrackingService struct {
	logger    zerolog.Logger
	registry  *Registry
	scheduler *Scheduler
	host      ports.PageHost
	bus       ports.EventBus
	settings  func(ctx context.Context) (domain.Settings, error)
}

func NewTrackingService(logger zerolog.Logger, registry *Registry, scheduler *Scheduler, host ports.PageHost, bus ports.EventBus, settings func(ctx context.Context) (domain.Settings, error)) *TrackingService {
	return &TrackingService{logger: logger, registry: registry, scheduler: scheduler, host: host, bus: bus, settings: settings}
}

type SnapshotDTO struct {
	Timestamp int64  `json:"timestamp"`
	URL       string `json:"url"`
	// ImagePath pointe vers /api/v1/trackings/{id}/snapshots/{timestamp}.png
	ImagePath string `json:"imagePath"`
}

// TrackingDTO est la vue API d'une tracking: les images ne sont pas incluses.
type TrackingDTO struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	IsTracking  bool   `json:"isTracking"`
	Active      bool   `json:"active"`
	MinInterval int    `json:"minInterval"`
	MaxInterval int    `json:"maxInterval"`

	LastContentHash string `json:"lastContentHash,omitempty"`
	TimeLeft        *int   `json:"timeLeft"`
	ChangeCount     int    `json:"changeCount"`
	LastRefresh     *int64 `json:"lastRefresh"`

	Snapshots []SnapshotDTO `json:"snapshots"`
}

func (s *TrackingService) toDTO(t domain.TrackingRecord) TrackingDTO {
	snaps := make([]SnapshotDTO, 0, len(t.Snapshots))
	for _, snap := range t.Snapshots {
		snaps = append(snaps, toSnapshotDTO(t.ID, snap))
	}
	active := false
	if s.scheduler != nil {
		active = s.scheduler.Active(t.ID)
	}
	return TrackingDTO{
		ID:              t.ID,
		URL:             t.URL,
		Name:            t.Name,
		IsTracking:      t.IsTracking,
		Active:          active,
		MinInterval:     t.MinInterval,
		MaxInterval:     t.MaxInterval,
		LastContentHash: t.LastContentHash,
		TimeLeft:        t.TimeLeft,
		ChangeCount:     t.ChangeCount,
		LastRefresh:     t.LastRefresh,
		Snapshots:       snaps,
	}
}

func toSnapshotDTO(id string, snap domain.Snapshot) SnapshotDTO {
	return SnapshotDTO{
		Timestamp: snap.Timestamp,
		URL:       snap.URL,
		ImagePath: "/api/v1/trackings/" + id + "/snapshots/" + strconv.FormatInt(snap.Timestamp, 10) + ".png",
	}
}

type CreateTrackingRequest struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	MinInterval int    `json:"minInterval,omitempty"`
	MaxInterval int    `json:"maxInterval,omitempty"`
	// Start démarre le suivi immédiatement.
	Start bool `json:"start,omitempty"`
}

// UpdateTrackingRequest: les champs nil sont laissés inchangés.
type UpdateTrackingRequest struct {
	URL         *string `json:"url,omitempty"`
	Name        *string `json:"name,omitempty"`
	MinInterval *int    `json:"minInterval,omitempty"`
	MaxInterval *int    `json:"maxInterval,omitempty"`
	IsTracking  *bool   `json:"isTracking,omitempty"`
}

func (s *TrackingService) Create(ctx context.Context, req CreateTrackingRequest) (TrackingDTO, error) {
	u, err := domain.ValidateTrackingURL(req.URL)
	if err != nil {
		return TrackingDTO{}, invalid("invalid_url", "please enter a valid url", err)
	}
	canon := strings.TrimSpace(req.URL)
	if _, exists := s.registry.FindByURL(canon); exists {
		return TrackingDTO{}, ErrConflict
	}

	min, max := req.MinInterval, req.MaxInterval
	if s.settings != nil {
		if st, err := s.settings(ctx); err == nil {
			if min <= 0 {
				min = st.DefaultMinInterval
			}
			if max <= 0 {
				max = st.DefaultMaxInterval
			}
		}
	}
	if req.MinInterval > 0 && req.MaxInterval > 0 && req.MaxInterval < req.MinInterval {
		return TrackingDTO{}, invalid("invalid_interval", "maxInterval must be >= minInterval", nil)
	}
	min, max = domain.NormalizeIntervals(min, max)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = u.Hostname()
	}

	rec := domain.TrackingRecord{
		ID:          "tracking_" + xid.New().String(),
		URL:         canon,
		Name:        name,
		IsTracking:  req.Start,
		MinInterval: min,
		MaxInterval: max,
		Snapshots:   []domain.Snapshot{},
	}
	created, err := s.registry.Insert(ctx, rec)
	if err != nil {
		return TrackingDTO{}, err
	}
	s.publish(ports.TopicTrackingCreated, created)

	if created.IsTracking {
		if err := s.scheduler.Start(ctx, created.ID); err != nil {
			s.logger.Warn().Err(err).Str("tracking_id", created.ID).Msg("start after create failed")
		}
	}
	return s.Get(ctx, created.ID)
}

func (s *TrackingService) Get(ctx context.Context, id string) (TrackingDTO, error) {
	rec, err := s.registry.Get(id)
	if err != nil {
		return TrackingDTO{}, err
	}
	return s.toDTO(rec), nil
}

func (s *TrackingService) List(ctx context.Context, limit int) ([]TrackingDTO, error) {
	recs := s.registry.List()
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	out := make([]TrackingDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, s.toDTO(rec))
	}
	return out, nil
}

func (s *TrackingService) Update(ctx context.Context, id string, req UpdateTrackingRequest) (TrackingDTO, error) {
	existing, err := s.registry.Get(id)
	if err != nil {
		return TrackingDTO{}, err
	}

	url := existing.URL
	if req.URL != nil && strings.TrimSpace(*req.URL) != "" {
		if _, err := domain.ValidateTrackingURL(*req.URL); err != nil {
			return TrackingDTO{}, invalid("invalid_url", "please enter a valid url", err)
		}
		url = strings.TrimSpace(*req.URL)
		if other, exists := s.registry.FindByURL(url); exists && other.ID != id {
			return TrackingDTO{}, ErrConflict
		}
	}
	min, max := existing.MinInterval, existing.MaxInterval
	if req.MinInterval != nil {
		min = *req.MinInterval
	}
	if req.MaxInterval != nil {
		max = *req.MaxInterval
	}
	if min > 0 && max > 0 && max < min {
		return TrackingDTO{}, invalid("invalid_interval", "maxInterval must be >= minInterval", nil)
	}
	min, max = domain.NormalizeIntervals(min, max)

	updated, err := s.registry.Mutate(ctx, id, func(r *domain.TrackingRecord) {
		if r.URL != url {
			// Autre page: l'ancien hash n'est plus une référence valable.
			r.URL = url
			r.LastContentHash = ""
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			r.Name = strings.TrimSpace(*req.Name)
		}
		r.MinInterval = min
		r.MaxInterval = max
		if req.IsTracking != nil {
			r.IsTracking = *req.IsTracking
		}
	})
	if err != nil {
		return TrackingDTO{}, err
	}
	s.publish(ports.TopicTrackingUpdated, updated)

	// Équivalent de l'écoute des changements de stockage: démarrage / arrêt.
	switch {
	case existing.IsTracking && !updated.IsTracking:
		s.scheduler.Stop(id)
	case !existing.IsTracking && updated.IsTracking:
		if err := s.scheduler.Start(ctx, id); err != nil {
			return TrackingDTO{}, err
		}
	}
	return s.Get(ctx, id)
}

func (s *TrackingService) Delete(ctx context.Context, id string) error {
	if _, err := s.registry.Get(id); err != nil {
		return err
	}
	s.scheduler.Stop(id)
	if s.host != nil {
		if err := s.host.Close(id); err != nil {
			s.logger.Warn().Err(err).Str("tracking_id", id).Msg("close tab failed")
		}
	}
	if err := s.registry.Delete(ctx, id); err != nil {
		return err
	}
	s.publishRaw(ports.TopicTrackingDeleted, map[string]any{"id": id})
	return nil
}

// Start passe isTracking à true et arme le scheduler (idempotent).
func (s *TrackingService) Start(ctx context.Context, id string) (TrackingDTO, error) {
	return s.StartWith(ctx, domain.StartTracking{TrackingID: id})
}

// StartWith applique url/min/max éventuels du message START_TRACKING puis démarre.
func (s *TrackingService) StartWith(ctx context.Context, msg domain.StartTracking) (TrackingDTO, error) {
	id := msg.TrackingID
	if _, err := s.registry.Get(id); err != nil {
		return TrackingDTO{}, err
	}
	if msg.URL != "" {
		if _, err := domain.ValidateTrackingURL(msg.URL); err != nil {
			return TrackingDTO{}, invalid("invalid_url", "please enter a valid url", err)
		}
	}
	updated, err := s.registry.Mutate(ctx, id, func(r *domain.TrackingRecord) {
		r.IsTracking = true
		if msg.URL != "" && msg.URL != r.URL {
			r.URL = strings.TrimSpace(msg.URL)
			r.LastContentHash = ""
		}
		if msg.Min > 0 || msg.Max > 0 {
			min, max := msg.Min, msg.Max
			if min <= 0 {
				min = r.MinInterval
			}
			if max <= 0 {
				max = r.MaxInterval
			}
			r.MinInterval, r.MaxInterval = domain.NormalizeIntervals(min, max)
		}
	})
	if err != nil {
		return TrackingDTO{}, err
	}
	s.publish(ports.TopicTrackingUpdated, updated)
	if err := s.scheduler.Start(ctx, id); err != nil {
		return TrackingDTO{}, err
	}
	return s.Get(ctx, id)
}

func (s *TrackingService) Stop(ctx context.Context, id string) (TrackingDTO, error) {
	updated, err := s.registry.Mutate(ctx, id, func(r *domain.TrackingRecord) {
		r.IsTracking = false
		r.TimeLeft = nil
	})
	if err != nil {
		return TrackingDTO{}, err
	}
	s.scheduler.Stop(id)
	s.publish(ports.TopicTrackingUpdated, updated)
	return s.Get(ctx, id)
}

// RefreshNow déclenche un rechargement immédiat (sans effet si inactive).
func (s *TrackingService) RefreshNow(ctx context.Context, id string) (TrackingDTO, error) {
	if _, err := s.registry.Get(id); err != nil {
		return TrackingDTO{}, err
	}
	s.scheduler.RefreshNow(ctx, id)
	return s.Get(ctx, id)
}

func (s *TrackingService) Snapshots(ctx context.Context, id string) ([]SnapshotDTO, error) {
	rec, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	out := make([]SnapshotDTO, 0, len(rec.Snapshots))
	for _, snap := range rec.Snapshots {
		out = append(out, toSnapshotDTO(id, snap))
	}
	return out, nil
}

// SnapshotImage renvoie le PNG de la capture prise à timestamp (ms).
func (s *TrackingService) SnapshotImage(ctx context.Context, id string, timestamp int64) ([]byte, error) {
	rec, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	for _, snap := range rec.Snapshots {
		if snap.Timestamp == timestamp {
			return domain.DecodePNGDataURL(snap.ImageData)
		}
	}
	return nil, ErrNotFound
}

// ClearSnapshots vide l'historique et remet le compteur de changements à zéro.
func (s *TrackingService) ClearSnapshots(ctx context.Context, id string) (TrackingDTO, error) {
	updated, err := s.registry.Mutate(ctx, id, func(r *domain.TrackingRecord) {
		r.Snapshots = []domain.Snapshot{}
		r.ChangeCount = 0
	})
	if err != nil {
		return TrackingDTO{}, err
	}
	s.publish(ports.TopicTrackingUpdated, updated)
	return s.toDTO(updated), nil
}

// Import ajoute les trackings dont l'URL est inconnue; renvoie le nombre créé.
func (s *TrackingService) Import(ctx context.Context, reqs []CreateTrackingRequest) (int, error) {
	created := 0
	for _, req := range reqs {
		if _, exists := s.registry.FindByURL(strings.TrimSpace(req.URL)); exists {
			continue
		}
		if _, err := s.Create(ctx, req); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// MigrateLegacy importe l'ancien état à tracking unique. Comme à l'installation
// de l'extension, la migration n'a lieu que si le registre est vide.
func (s *TrackingService) MigrateLegacy(ctx context.Context, legacy domain.LegacyState) (TrackingDTO, error) {
	if len(s.registry.List()) > 0 {
		return TrackingDTO{}, invalid("registry_not_empty", "legacy migration only applies to an empty registry", ErrConflict)
	}
	rec, err := legacy.ToRecord("tracking_" + xid.New().String())
	if err != nil {
		return TrackingDTO{}, invalid("invalid_url", "legacy currentTrackedUrl is not a valid url", err)
	}
	created, err := s.registry.Insert(ctx, rec)
	if err != nil {
		return TrackingDTO{}, err
	}
	s.logger.Info().Str("tracking_id", created.ID).Str("url", created.URL).Msg("legacy tracking migrated")
	s.publish(ports.TopicTrackingCreated, created)

	if created.IsTracking {
		if err := s.scheduler.Start(ctx, created.ID); err != nil {
			s.logger.Warn().Err(err).Str("tracking_id", created.ID).Msg("start after migration failed")
		}
	}
	return s.Get(ctx, created.ID)
}

func (s *TrackingService) publish(topic string, t domain.TrackingRecord) {
	if s.bus == nil {
		return
	}
	b, err := json.Marshal(s.toDTO(t))
	if err != nil {
		return
	}
	s.bus.Publish(topic, b)
}

func (s *TrackingService) publishRaw(topic string, v any) {
	if s.bus == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.bus.Publish(topic, b)
}
