package app

import (
	"context"
	"sync"

	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
	"github.com/rs/zerolog"
)

// Registry est la table des trackings en mémoire, adossée à un RegistryStore.
// Toutes les mutations passent par ici: un seul écrivain pour la clé "trackings".
//
// L'état mémoire fait foi; une sauvegarde ratée est loggée puis retentée
// à la mutation suivante (le tableau complet est réécrit à chaque fois).
type Registry struct {
	logger zerolog.Logger
	store  ports.RegistryStore

	mu    sync.Mutex
	byID  map[string]domain.TrackingRecord
	order []string
}

func NewRegistry(logger zerolog.Logger, store ports.RegistryStore) *Registry {
	return &Registry{logger: logger, store: store, byID: map[string]domain.TrackingRecord{}}
}

// Load remplace l'état mémoire par le contenu du store.
func (r *Registry) Load(ctx context.Context) error {
	records, err := r.store.Load(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]domain.TrackingRecord, len(records))
	r.order = r.order[:0]
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		if _, dup := r.byID[rec.ID]; dup {
			r.logger.Warn().Str("tracking_id", rec.ID).Msg("duplicate tracking id in store, keeping first")
			continue
		}
		r.byID[rec.ID] = rec.Clone()
		r.order = append(r.order, rec.ID)
	}
	return nil
}

func (r *Registry) List() []domain.TrackingRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TrackingRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Clone())
	}
	return out
}

func (r *Registry) Get(id string) (domain.TrackingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return domain.TrackingRecord{}, ports.ErrNotFound
	}
	return rec.Clone(), nil
}

// FindByURL renvoie la première tracking dont l'URL est exactement url.
func (r *Registry) FindByURL(url string) (domain.TrackingRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if r.byID[id].URL == url {
			return r.byID[id].Clone(), true
		}
	}
	return domain.TrackingRecord{}, false
}

func (r *Registry) Insert(ctx context.Context, rec domain.TrackingRecord) (domain.TrackingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[rec.ID]; ok {
		return domain.TrackingRecord{}, ports.ErrConflict
	}
	rec = rec.Clone()
	r.byID[rec.ID] = rec
	r.order = append(r.order, rec.ID)
	r.persistLocked(ctx)
	return rec.Clone(), nil
}

// Mutate applique fn à la tracking id puis persiste.
func (r *Registry) Mutate(ctx context.Context, id string, fn func(rec *domain.TrackingRecord)) (domain.TrackingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return domain.TrackingRecord{}, ports.ErrNotFound
	}
	rec = rec.Clone()
	fn(&rec)
	rec.ID = id
	r.byID[id] = rec
	r.persistLocked(ctx)
	return rec.Clone(), nil
}

// SetTimeLeft met à jour le compte à rebours en mémoire uniquement.
// La valeur part en base avec la prochaine mutation persistée.
func (r *Registry) SetTimeLeft(id string, timeLeft *int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return
	}
	if timeLeft == nil {
		rec.TimeLeft = nil
	} else {
		v := *timeLeft
		rec.TimeLeft = &v
	}
	r.byID[id] = rec
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ports.ErrNotFound
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.persistLocked(ctx)
	return nil
}

// Flush force l'écriture de l'état courant (compteurs volatils compris).
func (r *Registry) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Save(ctx, r.snapshotLocked())
}

func (r *Registry) persistLocked(ctx context.Context) {
	if err := r.store.Save(ctx, r.snapshotLocked()); err != nil {
		r.logger.Error().Err(err).Msg("registry save failed")
	}
}

func (r *Registry) snapshotLocked() []domain.TrackingRecord {
	out := make([]domain.TrackingRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
