package app

import (
	"container/list"
	"context"
	"sync"
)

// LoadLimiter borne le nombre de chargements de pages simultanés.
// Les refresh en attente sont servis dans leur ordre d'arrivée: une tracking
// à intervalle court ne peut pas affamer les autres. Le plafond
// (maxConcurrentLoads) se règle à chaud via SetLimit.
type LoadLimiter struct {
	mu       sync.Mutex
	limit    int
	inFlight int
	// waiters: file de canaux, fermés quand le créneau est attribué.
	waiters list.List
}

// LoadStats est exposé par /health.
type LoadStats struct {
	Limit    int `json:"limit"`
	InFlight int `json:"inFlight"`
	Waiting  int `json:"waiting"`
}

func NewLoadLimiter(limit int) *LoadLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &LoadLimiter{limit: limit}
}

func (l *LoadLimiter) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

func (l *LoadLimiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

func (l *LoadLimiter) Stats() LoadStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LoadStats{Limit: l.limit, InFlight: l.inFlight, Waiting: l.waiters.Len()}
}

// SetLimit change le plafond. Une hausse sert immédiatement les premiers en attente;
// une baisse laisse finir les chargements en cours.
func (l *LoadLimiter) SetLimit(limit int) {
	if limit <= 0 {
		limit = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = limit
	l.grantLocked()
}

// Acquire prend un créneau ou attend son tour; un contexte annulé n'en prend jamais.
func (l *LoadLimiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	if l.inFlight < l.limit && l.waiters.Len() == 0 {
		l.inFlight++
		l.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	elem := l.waiters.PushBack(ready)
	l.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		defer l.mu.Unlock()
		select {
		case <-ready:
			// Créneau attribué pendant l'annulation: on le rend.
			l.inFlight--
			l.grantLocked()
		default:
			l.waiters.Remove(elem)
		}
		return ctx.Err()
	}
}

func (l *LoadLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight > 0 {
		l.inFlight--
	}
	l.grantLocked()
}

// Do exécute fn dans un créneau du limiteur.
func (l *LoadLimiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// grantLocked attribue les créneaux libres aux premiers de la file.
func (l *LoadLimiter) grantLocked() {
	for l.inFlight < l.limit && l.waiters.Len() > 0 {
		front := l.waiters.Front()
		l.waiters.Remove(front)
		l.inFlight++
		close(front.Value.(chan struct{}))
	}
}
