package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
	"github.com/rs/zerolog"
)

type SchedulerOptions struct {
	// Unit est la durée d'une "seconde" d'intervalle (raccourcie en test).
	Unit time.Duration
	// Intn tire l'intervalle; math/rand.Intn par défaut.
	Intn func(n int) int
	// SettleDelay attend que le contenu dynamique se stabilise avant la détection.
	SettleDelay func(ctx context.Context) time.Duration
}

func DefaultSchedulerOptions() SchedulerOptions {
	return SchedulerOptions{
		Unit: time.Second,
		Intn: rand.Intn,
		SettleDelay: func(context.Context) time.Duration {
			return time.Duration(domain.DefaultSettings().SettleDelayMs) * time.Millisecond
		},
	}
}

// timerPair regroupe le timer de refresh et le compte à rebours d'une tracking.
// pending: onglet en cours d'ouverture. busy: refresh en cours, réarmement à suivre.
// gen change à chaque armement: un timer périmé qui se déclenche tard est ignoré.
type timerPair struct {
	gen       uint64
	refresh   *time.Timer
	countdown context.CancelFunc
	pending   bool
	busy      bool
}

func (p *timerPair) disarm() {
	if p.refresh != nil {
		p.refresh.Stop()
		p.refresh = nil
	}
	if p.countdown != nil {
		p.countdown()
		p.countdown = nil
	}
}

// Scheduler possède au plus une paire de timers par tracking active.
type Scheduler struct {
	parent context.Context

	logger   zerolog.Logger
	registry *Registry
	host     ports.PageHost
	gate     ports.Gate
	limiter  *LoadLimiter
	detector *ChangeDetector
	bus      ports.EventBus
	opts     SchedulerOptions

	mu     sync.Mutex
	timers map[string]*timerPair
	gen    uint64
	closed bool
	wg     sync.WaitGroup
}

func NewScheduler(parent context.Context, logger zerolog.Logger, registry *Registry, host ports.PageHost, detector *ChangeDetector, bus ports.EventBus, opts SchedulerOptions) *Scheduler {
	if parent == nil {
		parent = context.Background()
	}
	def := DefaultSchedulerOptions()
	if opts.Unit <= 0 {
		opts.Unit = def.Unit
	}
	if opts.Intn == nil {
		opts.Intn = def.Intn
	}
	if opts.SettleDelay == nil {
		opts.SettleDelay = def.SettleDelay
	}
	return &Scheduler{
		parent:   parent,
		logger:   logger,
		registry: registry,
		host:     host,
		detector: detector,
		bus:      bus,
		opts:     opts,
		timers:   map[string]*timerPair{},
	}
}

// SetGate branche le contrôle robots.txt / cadence par hôte (optionnel).
func (s *Scheduler) SetGate(g ports.Gate) { s.gate = g }

// SetLimiter borne le nombre de rechargements simultanés (optionnel).
func (s *Scheduler) SetLimiter(l *LoadLimiter) { s.limiter = l }

// Start arme la tracking id. Un second Start pour une id déjà planifiée
// (ou dont l'onglet est en cours d'ouverture) ne fait rien.
func (s *Scheduler) Start(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if _, ok := s.timers[id]; ok {
		s.mu.Unlock()
		s.logger.Debug().Str("tracking_id", id).Msg("already tracking, ignoring duplicate start")
		return nil
	}
	s.gen++
	pair := &timerPair{gen: s.gen, pending: true}
	s.timers[id] = pair
	s.mu.Unlock()

	rec, err := s.registry.Get(id)
	if err != nil {
		s.forget(id, pair)
		return nil
	}

	s.logger.Info().Str("tracking_id", id).Str("url", rec.URL).Msg("starting tracking")
	if err := s.host.Open(ctx, id, rec.URL); err != nil {
		s.forget(id, pair)
		s.logger.Error().Err(err).Str("tracking_id", id).Msg("could not find or open tab")
		return fmt.Errorf("open tab: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timers[id] != pair {
		// Stop reçu pendant l'ouverture de l'onglet.
		s.logger.Debug().Str("tracking_id", id).Msg("tracking stopped while opening tab, aborting")
		return nil
	}
	pair.pending = false
	s.armLocked(id, pair, rec)
	s.publish(ports.TopicTrackingStarted, id)
	return nil
}

// Stop supprime la paire de timers et efface le compte à rebours.
func (s *Scheduler) Stop(id string) {
	s.mu.Lock()
	pair, ok := s.timers[id]
	if ok {
		pair.disarm()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.registry.SetTimeLeft(id, nil)
	if ok {
		s.logger.Info().Str("tracking_id", id).Msg("stopped tracking")
		s.publish(ports.TopicTrackingStopped, id)
	}
}

// RefreshNow recharge immédiatement une tracking active puis la réarme.
// Sans effet si la tracking n'est pas active ou déjà en cours de refresh.
func (s *Scheduler) RefreshNow(ctx context.Context, id string) {
	s.mu.Lock()
	pair, ok := s.timers[id]
	if !ok || pair.pending || pair.busy || s.closed {
		s.mu.Unlock()
		return
	}
	pair.disarm()
	pair.busy = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.refresh(id, pair)
	}()
}

// Restore arme toutes les trackings marquées actives (démarrage du service).
func (s *Scheduler) Restore(ctx context.Context) {
	for _, rec := range s.registry.List() {
		if !rec.IsTracking {
			continue
		}
		if err := s.Start(ctx, rec.ID); err != nil {
			s.logger.Warn().Err(err).Str("tracking_id", rec.ID).Msg("restore failed")
		}
	}
}

func (s *Scheduler) Active(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close désarme tout et attend les refresh en cours.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for id, pair := range s.timers {
		pair.disarm()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) forget(id string, pair *timerPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timers[id] == pair {
		delete(s.timers, id)
	}
}

// armLocked tire un intervalle et (re)crée la paire refresh + compte à rebours.
func (s *Scheduler) armLocked(id string, pair *timerPair, rec domain.TrackingRecord) {
	pair.disarm()
	pair.busy = false
	s.gen++
	pair.gen = s.gen

	seconds := domain.RandomInterval(rec.MinInterval, rec.MaxInterval, s.opts.Intn)
	s.registry.SetTimeLeft(id, &seconds)

	gen := pair.gen
	cdCtx, cancel := context.WithCancel(s.parent)
	pair.countdown = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.countdown(cdCtx, id, pair, gen, seconds)
	}()

	pair.refresh = time.AfterFunc(domain.Seconds(seconds, s.opts.Unit), func() {
		s.fire(id, gen)
	})

	s.logger.Debug().Str("tracking_id", id).Int("interval_s", seconds).Msg("next refresh scheduled")
}

func (s *Scheduler) countdown(ctx context.Context, id string, pair *timerPair, gen uint64, seconds int) {
	ticker := time.NewTicker(s.opts.Unit)
	defer ticker.Stop()

	left := seconds
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			left--
			if left < 0 {
				left = 0
			}
			if !s.setTimeLeftIfCurrent(id, pair, gen, left) || left == 0 {
				return
			}
		}
	}
}

// setTimeLeftIfCurrent n'écrit que si la paire (et son armement) est toujours
// celle de id: un Stop concurrent a déjà effacé timeLeft et ne doit pas être écrasé.
func (s *Scheduler) setTimeLeftIfCurrent(id string, pair *timerPair, gen uint64, left int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.timers[id] != pair || pair.gen != gen {
		return false
	}
	s.registry.SetTimeLeft(id, &left)
	return true
}

// scheduled indique si pair est toujours la paire active de id.
func (s *Scheduler) scheduled(id string, pair *timerPair) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.timers[id] == pair
}

func (s *Scheduler) fire(id string, gen uint64) {
	s.mu.Lock()
	pair, ok := s.timers[id]
	if !ok || pair.gen != gen || pair.busy || s.closed {
		s.mu.Unlock()
		return
	}
	pair.disarm()
	pair.busy = true
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.refresh(id, pair)
}

// refresh recharge la page, réarme, puis lance la détection de changement.
func (s *Scheduler) refresh(id string, pair *timerPair) {
	ctx := s.parent

	rec, err := s.registry.Get(id)
	if err != nil {
		s.forget(id, pair)
		return
	}

	reloaded := false
	switch {
	case s.gate != nil && !s.gate.Allowed(ctx, rec.URL):
		s.logger.Warn().Str("tracking_id", id).Str("url", rec.URL).Msg("refresh skipped: disallowed by robots.txt")
	default:
		reloaded = s.reload(ctx, id, pair, rec.URL)
	}

	if !s.rearm(id, pair) {
		return
	}
	if !reloaded {
		return
	}

	s.publish(ports.TopicPageRefreshed, id)
	s.detect(ctx, id, rec.URL)
}

func (s *Scheduler) reload(ctx context.Context, id string, pair *timerPair, url string) bool {
	if s.gate != nil {
		if err := s.gate.Wait(ctx, url); err != nil {
			return false
		}
	}
	load := func() error {
		// Stop/suppression pendant l'attente (gate, limiteur): pas de rechargement.
		if !s.scheduled(id, pair) {
			return errNotScheduled
		}
		s.logger.Info().Str("tracking_id", id).Str("url", url).Msg("refreshing page")
		return s.host.Reload(ctx, id, url)
	}
	var err error
	if s.limiter != nil {
		err = s.limiter.Do(ctx, load)
	} else {
		err = load()
	}
	if errors.Is(err, errNotScheduled) {
		s.logger.Debug().Str("tracking_id", id).Msg("tracking stopped before reload, skipped")
		return false
	}
	if err != nil {
		s.logger.Error().Err(err).Str("tracking_id", id).Msg("page reload failed")
		return false
	}
	return true
}

var errNotScheduled = errors.New("tracking no longer scheduled")

// rearm replanifie si la tracking est toujours active; false sinon.
func (s *Scheduler) rearm(id string, pair *timerPair) bool {
	rec, err := s.registry.Get(id)
	if err != nil || !rec.IsTracking {
		s.mu.Lock()
		if s.timers[id] == pair {
			pair.disarm()
			delete(s.timers, id)
		}
		s.mu.Unlock()
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.timers[id] != pair {
		return false
	}
	s.armLocked(id, pair, rec)
	return true
}

func (s *Scheduler) detect(ctx context.Context, id, url string) {
	if s.detector == nil {
		return
	}
	if d := s.opts.SettleDelay(ctx); d > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
		}
	}

	text, err := s.host.VisibleText(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("tracking_id", id).Msg("read page text failed")
		return
	}
	s.detector.Observe(ctx, id, url, text)
}

func (s *Scheduler) publish(topic, id string) {
	if s.bus == nil {
		return
	}
	b, err := json.Marshal(map[string]any{"trackingId": id})
	if err != nil {
		return
	}
	s.bus.Publish(topic, b)
}
