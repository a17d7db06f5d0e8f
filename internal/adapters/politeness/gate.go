// Package politeness implémente ports.Gate: robots.txt (mis en cache par hôte)
// et cadence minimale entre deux chargements d'un même hôte.
package politeness

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

type Options struct {
	UserAgent string
	// Every est l'écart minimal entre deux chargements d'un même hôte (0 = pas de limite).
	Every time.Duration
	// RobotsTTL: durée de validité d'un robots.txt en cache.
	RobotsTTL time.Duration
	// Enabled est relu à chaque appel (réglage RespectRobots).
	Enabled func(ctx context.Context) bool
}

type robotsEntry struct {
	group   *robotstxt.Group
	fetched time.Time
}

type Gate struct {
	logger zerolog.Logger
	client *http.Client
	opts   Options
	now    func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	robots   map[string]robotsEntry
}

func New(logger zerolog.Logger, client *http.Client, opts Options) *Gate {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.RobotsTTL <= 0 {
		opts.RobotsTTL = time.Hour
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "page-tracker"
	}
	return &Gate{
		logger:   logger,
		client:   client,
		opts:     opts,
		now:      time.Now,
		limiters: map[string]*rate.Limiter{},
		robots:   map[string]robotsEntry{},
	}
}

// Allowed consulte robots.txt. Toute erreur de récupération vaut autorisation.
func (g *Gate) Allowed(ctx context.Context, raw string) bool {
	if g.opts.Enabled != nil && !g.opts.Enabled(ctx) {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}

	group := g.robotsGroup(ctx, u)
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

// Wait bloque jusqu'à ce que l'hôte de raw puisse être rechargé.
func (g *Gate) Wait(ctx context.Context, raw string) error {
	if g.opts.Every <= 0 {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	g.mu.Lock()
	lim, ok := g.limiters[u.Host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(g.opts.Every), 1)
		g.limiters[u.Host] = lim
	}
	g.mu.Unlock()
	return lim.Wait(ctx)
}

func (g *Gate) robotsGroup(ctx context.Context, u *url.URL) *robotstxt.Group {
	g.mu.Lock()
	entry, ok := g.robots[u.Host]
	g.mu.Unlock()
	if ok && g.now().Sub(entry.fetched) < g.opts.RobotsTTL {
		return entry.group
	}

	// Récupération hors verrou; deux fetchs concurrents pour un même hôte sont tolérés.
	group := g.fetchRobots(ctx, u)
	g.mu.Lock()
	g.robots[u.Host] = robotsEntry{group: group, fetched: g.now()}
	g.mu.Unlock()
	return group
}

func (g *Gate) fetchRobots(ctx context.Context, u *url.URL) *robotstxt.Group {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.opts.UserAgent)
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug().Err(err).Str("host", u.Host).Msg("robots.txt fetch failed, allowing")
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		g.logger.Debug().Err(err).Str("host", u.Host).Msg("robots.txt parse failed, allowing")
		return nil
	}
	return data.FindGroup(g.opts.UserAgent)
}
