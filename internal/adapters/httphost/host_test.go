package httphost

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
	"github.com/rs/zerolog"
)

func TestExtractText_SkipsScriptsAndStyles(t *testing.T) {
	doc := `<html><head><title>T</title><style>.a{}</style></head>
<body><h1>Price</h1><script>var x = 1;</script><p>  42   EUR </p><noscript>js</noscript></body></html>`

	got, err := ExtractText(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "Price\n42 EUR" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestHost_ReloadFetchesFreshContent(t *testing.T) {
	var hits atomic.Int32
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		ua.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		if n == 1 {
			_, _ = w.Write([]byte(`<body>v1</body>`))
			return
		}
		_, _ = w.Write([]byte(`<body>v2</body>`))
	}))
	defer srv.Close()

	h := New(zerolog.Nop(), srv.Client(), "page-tracker-test")
	ctx := context.Background()

	if err := h.Open(ctx, "t1", srv.URL); err != nil {
		t.Fatalf("Open: %v", err)
	}
	text, err := h.VisibleText(ctx, "t1")
	if err != nil || text != "v1" {
		t.Fatalf("VisibleText after Open: %q, %v", text, err)
	}
	if err := h.Reload(ctx, "t1", srv.URL); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	text, _ = h.VisibleText(ctx, "t1")
	if text != "v2" {
		t.Fatalf("VisibleText after Reload: %q", text)
	}
	if ua.Load().(string) != "page-tracker-test" {
		t.Fatalf("user agent not sent: %v", ua.Load())
	}

	if _, err := h.Capture(ctx, "t1"); !errors.Is(err, ports.ErrCaptureUnsupported) {
		t.Fatalf("Capture: want ErrCaptureUnsupported, got %v", err)
	}

	_ = h.Close("t1")
	if _, err := h.VisibleText(ctx, "t1"); err == nil {
		t.Fatalf("expected error after Close")
	}
}

func TestHost_ReloadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h := New(zerolog.Nop(), srv.Client(), "")
	if err := h.Reload(context.Background(), "t1", srv.URL); err == nil {
		t.Fatalf("expected error on 503")
	}
}
