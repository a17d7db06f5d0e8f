// Package chromehost pilote un Chrome (local ou distant) via le protocole DevTools:
// un onglet par tracking, rechargé sans cache, lu et capturé à la demande.
package chromehost

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

const visibleTextJS = `document.body ? document.body.innerText : ''`

type Options struct {
	// RemoteURL (ws://...) réutilise un Chrome existant; vide = lancement local.
	RemoteURL string
	Headless  bool
	UserAgent string
	// Timeout borne chaque opération DevTools.
	Timeout time.Duration
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	url    string
}

type Host struct {
	logger  zerolog.Logger
	timeout time.Duration

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu   sync.Mutex
	tabs map[string]*tab
}

func New(ctx context.Context, logger zerolog.Logger, opts Options) (*Host, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		execOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		execOpts = append(execOpts, chromedp.Flag("headless", opts.Headless))
		if opts.UserAgent != "" {
			execOpts = append(execOpts, chromedp.UserAgent(opts.UserAgent))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, execOpts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug().Msgf(format, args...)
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Warn().Msgf(format, args...)
		}),
	)
	// Premier Run: démarre (ou rejoint) le navigateur.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromehost: start browser: %w", err)
	}

	return &Host{
		logger:        logger,
		timeout:       opts.Timeout,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		tabs:          map[string]*tab{},
	}, nil
}

// Open réutilise l'onglet déjà ouvert sur url (exact, puis préfixe) ou en crée un.
func (h *Host) Open(ctx context.Context, trackingID, url string) error {
	h.mu.Lock()
	if t, ok := h.tabs[trackingID]; ok && t.url == url {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	var tabOpts []chromedp.ContextOption
	if id, ok := h.findTarget(ctx, url); ok {
		tabOpts = append(tabOpts, chromedp.WithTargetID(id))
	}
	tabCtx, cancel := chromedp.NewContext(h.browserCtx, tabOpts...)
	// Allocation de l'onglet hors timeout: sa durée de vie suit tabCtx.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return fmt.Errorf("chromehost: open tab: %w", err)
	}

	actions := []chromedp.Action{network.Enable(), network.SetCacheDisabled(true)}
	if len(tabOpts) == 0 {
		actions = append(actions, chromedp.Navigate(url))
	}
	if err := h.run(ctx, tabCtx, actions...); err != nil {
		cancel()
		return err
	}

	h.mu.Lock()
	if old, ok := h.tabs[trackingID]; ok {
		old.cancel()
	}
	h.tabs[trackingID] = &tab{ctx: tabCtx, cancel: cancel, url: url}
	h.mu.Unlock()
	h.logger.Debug().Str("tracking_id", trackingID).Str("url", url).Bool("reused", len(tabOpts) > 0).Msg("tab ready")
	return nil
}

func (h *Host) findTarget(ctx context.Context, url string) (target.ID, bool) {
	infos, err := chromedp.Targets(h.browserCtx)
	if err != nil {
		h.logger.Debug().Err(err).Msg("list targets failed")
		return "", false
	}

	h.mu.Lock()
	owned := map[target.ID]bool{}
	for _, t := range h.tabs {
		if c := chromedp.FromContext(t.ctx); c != nil && c.Target != nil {
			owned[c.Target.TargetID] = true
		}
	}
	h.mu.Unlock()

	return pickTarget(infos, url, owned)
}

// pickTarget choisit une page non encore attribuée: URL exacte d'abord,
// sinon la première dont l'URL commence par url.
func pickTarget(infos []*target.Info, url string, owned map[target.ID]bool) (target.ID, bool) {
	var prefix target.ID
	for _, info := range infos {
		if info == nil || info.Type != "page" || owned[info.TargetID] {
			continue
		}
		if info.URL == url {
			return info.TargetID, true
		}
		if prefix == "" && strings.HasPrefix(info.URL, url) {
			prefix = info.TargetID
		}
	}
	return prefix, prefix != ""
}

// Reload recharge sans cache (le cache est désactivé à l'ouverture de l'onglet).
// Si l'URL de la tracking a changé, l'onglet navigue vers la nouvelle URL.
// Un onglet mort est rouvert; une tracking sans onglet (fermée, supprimée) est une erreur.
func (h *Host) Reload(ctx context.Context, trackingID, url string) error {
	h.mu.Lock()
	t, ok := h.tabs[trackingID]
	var current string
	if ok {
		current = t.url
	}
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w %s", errNoTab, trackingID)
	}

	err := h.run(ctx, t.ctx, reloadAction(current, url))
	if err != nil && t.ctx.Err() != nil {
		h.forget(trackingID, t)
		return h.Open(ctx, trackingID, url)
	}
	if err == nil && current != url {
		h.mu.Lock()
		t.url = url
		h.mu.Unlock()
		h.logger.Debug().Str("tracking_id", trackingID).Str("url", url).Msg("tab navigated to new url")
	}
	return err
}

func reloadAction(current, url string) chromedp.Action {
	if current != url {
		return chromedp.Navigate(url)
	}
	return chromedp.Reload()
}

func (h *Host) VisibleText(ctx context.Context, trackingID string) (string, error) {
	t, err := h.tab(trackingID)
	if err != nil {
		return "", err
	}
	var text string
	if err := h.run(ctx, t.ctx, chromedp.Evaluate(visibleTextJS, &text)); err != nil {
		return "", err
	}
	return text, nil
}

func (h *Host) Focus(ctx context.Context, trackingID string) error {
	t, err := h.tab(trackingID)
	if err != nil {
		return nil
	}
	return h.run(ctx, t.ctx, page.BringToFront())
}

func (h *Host) Capture(ctx context.Context, trackingID string) ([]byte, error) {
	t, err := h.tab(trackingID)
	if err != nil {
		return nil, err
	}
	var buf []byte
	if err := h.run(ctx, t.ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (h *Host) Close(trackingID string) error {
	h.mu.Lock()
	t, ok := h.tabs[trackingID]
	delete(h.tabs, trackingID)
	h.mu.Unlock()
	if ok {
		t.cancel()
	}
	return nil
}

// Shutdown ferme tous les onglets puis le navigateur.
func (h *Host) Shutdown() {
	h.mu.Lock()
	for id, t := range h.tabs {
		t.cancel()
		delete(h.tabs, id)
	}
	h.mu.Unlock()
	h.browserCancel()
	h.allocCancel()
}

var errNoTab = errors.New("chromehost: no tab for tracking")

func (h *Host) tab(trackingID string) (*tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tabs[trackingID]
	if !ok {
		return nil, fmt.Errorf("%w %s", errNoTab, trackingID)
	}
	return t, nil
}

func (h *Host) forget(trackingID string, t *tab) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tabs[trackingID] == t {
		delete(h.tabs, trackingID)
		t.cancel()
	}
}

// run exécute actions dans l'onglet tabCtx, borné par le timeout et annulé avec ctx.
func (h *Host) run(ctx context.Context, tabCtx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(tabCtx, h.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}
