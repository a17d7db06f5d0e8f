// Package httphost est un hôte de pages sans navigateur: chaque refresh est un GET
// et le texte visible est extrait du HTML. Pas de capture d'écran.
package httphost

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// Taille max lue par page.
const maxBody = 8 << 20

type Host struct {
	logger    zerolog.Logger
	client    *http.Client
	userAgent string

	mu    sync.Mutex
	pages map[string]*page
}

type page struct {
	url  string
	text string
}

func New(logger zerolog.Logger, client *http.Client, userAgent string) *Host {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Host{logger: logger, client: client, userAgent: userAgent, pages: map[string]*page{}}
}

// Open charge la page une première fois.
func (h *Host) Open(ctx context.Context, trackingID, url string) error {
	return h.Reload(ctx, trackingID, url)
}

func (h *Host) Reload(ctx context.Context, trackingID, url string) error {
	text, err := h.fetch(ctx, url)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.pages[trackingID] = &page{url: url, text: text}
	h.mu.Unlock()
	return nil
}

func (h *Host) VisibleText(_ context.Context, trackingID string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pages[trackingID]
	if !ok {
		return "", fmt.Errorf("httphost: page not loaded for %s", trackingID)
	}
	return p.text, nil
}

func (h *Host) Focus(context.Context, string) error { return nil }

func (h *Host) Capture(context.Context, string) ([]byte, error) {
	return nil, ports.ErrCaptureUnsupported
}

func (h *Host) Close(trackingID string) error {
	h.mu.Lock()
	delete(h.pages, trackingID)
	h.mu.Unlock()
	return nil
}

func (h *Host) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("httphost: GET %s: status %d", url, resp.StatusCode)
	}
	return ExtractText(io.LimitReader(resp.Body, maxBody))
}

// ExtractText renvoie le texte du <body> hors script/style/noscript/template,
// un fragment par ligne.
func ExtractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	root := findBody(doc)
	if root == nil {
		return "", nil
	}

	var parts []string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)
	return strings.Join(parts, "\n"), nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
