package politeness

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func robotsServer(t *testing.T, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits.Add(1)
			_, _ = w.Write([]byte(body))
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGate_AllowedHonoursRobots(t *testing.T) {
	var hits atomic.Int32
	srv := robotsServer(t, "User-agent: *\nDisallow: /private\n", &hits)

	g := New(zerolog.Nop(), srv.Client(), Options{UserAgent: "page-tracker"})
	ctx := context.Background()

	if !g.Allowed(ctx, srv.URL+"/public/page") {
		t.Fatalf("expected /public/page to be allowed")
	}
	if g.Allowed(ctx, srv.URL+"/private/page") {
		t.Fatalf("expected /private/page to be disallowed")
	}
	if hits.Load() != 1 {
		t.Fatalf("robots.txt should be cached, fetched %d times", hits.Load())
	}
}

func TestGate_DisabledAllowsEverything(t *testing.T) {
	var hits atomic.Int32
	srv := robotsServer(t, "User-agent: *\nDisallow: /\n", &hits)

	g := New(zerolog.Nop(), srv.Client(), Options{Enabled: func(context.Context) bool { return false }})
	if !g.Allowed(context.Background(), srv.URL+"/anything") {
		t.Fatalf("expected allowed when disabled")
	}
	if hits.Load() != 0 {
		t.Fatalf("robots.txt should not be fetched when disabled")
	}
}

func TestGate_MissingRobotsAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	g := New(zerolog.Nop(), srv.Client(), Options{})
	if !g.Allowed(context.Background(), srv.URL+"/x") {
		t.Fatalf("404 robots.txt should allow")
	}
}

func TestGate_WaitSpacesSameHost(t *testing.T) {
	g := New(zerolog.Nop(), nil, Options{Every: 50 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := g.Wait(ctx, "https://example.com/a"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Fatalf("expected >= ~100ms for 3 waits, got %v", elapsed)
	}

	// Un autre hôte a son propre limiteur.
	ctxShort, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := g.Wait(ctxShort, "https://other.example.com/"); err != nil {
		t.Fatalf("first wait on new host should not block: %v", err)
	}
}
