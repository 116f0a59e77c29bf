package validate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/reportwatch/internal/model"
)

func init() {
	checkSleepFunc = func(time.Duration) {}
}

func TestListingChecker_Check(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Wed, 01 May 2024 10:00:00 GMT")
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusFound)
	})
	mux.HandleFunc("/nohead", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	sources := []model.Source{
		{Name: "ok", ListingURL: server.URL + "/ok"},
		{Name: "gone", ListingURL: server.URL + "/gone"},
		{Name: "moved", ListingURL: server.URL + "/moved"},
		{Name: "nohead", ListingURL: server.URL + "/nohead"},
	}

	checker := NewListingChecker(server.Client(), "test-agent", 2)
	results := checker.Check(context.Background(), sources)

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if !results[0].Reachable || results[0].LastModified == nil {
		t.Errorf("ok: unexpected %+v", results[0])
	}
	if results[1].Reachable || results[1].StatusCode != http.StatusNotFound {
		t.Errorf("gone: unexpected %+v", results[1])
	}
	if !results[2].Reachable || results[2].RedirectURL != server.URL+"/ok" {
		t.Errorf("moved: unexpected %+v", results[2])
	}
	if !results[3].Reachable || results[3].StatusCode != http.StatusOK {
		t.Errorf("nohead: expected GET fallback, got %+v", results[3])
	}
}

func TestListingChecker_RetriesTransient(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	checker := NewListingChecker(server.Client(), "", 1)
	results := checker.Check(context.Background(), []model.Source{{Name: "flaky", ListingURL: server.URL}})

	if !results[0].Reachable {
		t.Errorf("expected success after retries, got %+v", results[0])
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestListingChecker_NoRetryOn404(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewListingChecker(server.Client(), "", 1)
	checker.Check(context.Background(), []model.Source{{Name: "gone", ListingURL: server.URL}})

	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		status ListingStatus
		want   bool
	}{
		{ListingStatus{StatusCode: 503}, true},
		{ListingStatus{StatusCode: 429}, true},
		{ListingStatus{StatusCode: 404}, false},
		{ListingStatus{StatusCode: 200}, false},
		{ListingStatus{Error: "dial tcp: connection refused"}, true},
		{ListingStatus{Error: "no such host"}, false},
	}

	for _, tt := range tests {
		if got := isRetryable(tt.status); got != tt.want {
			t.Errorf("isRetryable(%+v) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
