package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/reportwatch/internal/cache"
)

func TestFetcher_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("unexpected User-Agent %q", got)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("ETag", `"v1"`)
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "test-agent", 1<<20)
	result, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.HTML != "<html><body>OK</body></html>" {
		t.Errorf("Unexpected HTML: %s", result.HTML)
	}
	if result.Meta.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", result.Meta.StatusCode)
	}
	if result.Meta.ETag != `"v1"` {
		t.Errorf("Expected ETag recorded, got %q", result.Meta.ETag)
	}
	if result.Meta.FetchedAt.IsZero() {
		t.Error("Expected FetchedAt to be set")
	}
}

func TestFetcher_NoRetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "test-agent", 1<<20)
	_, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 503, got nil")
	}
	if got := err.Error(); got != "unexpected status: 503 Service Unavailable" {
		t.Errorf("Unexpected error: %s", got)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected a single attempt, got %d", attempts.Load())
	}
}

func TestFetcher_TruncatesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("a", 100))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "test-agent", 10)
	result, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(result.HTML) != 10 {
		t.Errorf("Expected 10 bytes, got %d", len(result.HTML))
	}
}

func TestFetcher_InvalidURL(t *testing.T) {
	fetcher := NewFetcher(nil, "test-agent", 0)
	if _, err := fetcher.Fetch(context.Background(), "://bad"); err == nil {
		t.Error("Expected error for invalid URL")
	}
}

type countingListing struct {
	calls atomic.Int32
	html  string
	err   error
}

func (c *countingListing) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &FetchResult{HTML: c.html, FinalURL: rawURL, Meta: FetchMeta{StatusCode: 200, FetchedAt: time.Now()}}, nil
}

func TestCachedListing_HitAfterMiss(t *testing.T) {
	inner := &countingListing{html: "<a href='/a.pdf'>a</a>"}
	listing := NewCachedListing(inner, cache.NewMemoryCache(time.Minute, time.Minute), "static", time.Minute, nil)

	first, err := listing.Fetch(context.Background(), "https://example.com/reports")
	if err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if first.Meta.FromCache {
		t.Error("first fetch should not come from cache")
	}

	second, err := listing.Fetch(context.Background(), "https://example.com/reports")
	if err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}
	if !second.Meta.FromCache {
		t.Error("second fetch should come from cache")
	}
	if second.HTML != inner.html {
		t.Errorf("cached HTML mismatch: %q", second.HTML)
	}
	if inner.calls.Load() != 1 {
		t.Errorf("expected 1 inner fetch, got %d", inner.calls.Load())
	}
}

func TestCachedListing_ErrorsNotCached(t *testing.T) {
	inner := &countingListing{err: errors.New("boom")}
	listing := NewCachedListing(inner, cache.NewMemoryCache(time.Minute, time.Minute), "static", time.Minute, nil)

	for i := 0; i < 2; i++ {
		if _, err := listing.Fetch(context.Background(), "https://example.com/reports"); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls.Load() != 2 {
		t.Errorf("expected 2 inner fetches, got %d", inner.calls.Load())
	}
}

func TestCachedListing_StrategySeparatesEntries(t *testing.T) {
	shared := cache.NewMemoryCache(time.Minute, time.Minute)
	staticInner := &countingListing{html: "static"}
	renderedInner := &countingListing{html: "rendered"}

	static := NewCachedListing(staticInner, shared, "static", time.Minute, nil)
	rendered := NewCachedListing(renderedInner, shared, "rendered", time.Minute, nil)

	_, _ = static.Fetch(context.Background(), "https://example.com/")
	got, err := rendered.Fetch(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("rendered fetch failed: %v", err)
	}
	if got.HTML != "rendered" {
		t.Errorf("expected rendered HTML, got %q", got.HTML)
	}
}
