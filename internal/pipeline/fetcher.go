package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ListingSource produces the HTML of a source's listing page
type ListingSource interface {
	Fetch(ctx context.Context, rawURL string) (*FetchResult, error)
}

// FetchResult contains the listing HTML and response metadata
type FetchResult struct {
	HTML     string    `json:"html"`
	FinalURL string    `json:"final_url"`
	Meta     FetchMeta `json:"meta"`
}

// FetchMeta holds response metadata of a listing fetch
type FetchMeta struct {
	StatusCode   int       `json:"status_code,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
	Rendered     bool      `json:"rendered,omitempty"`
	FromCache    bool      `json:"from_cache,omitempty"`
}

// Fetcher fetches listing pages with a plain HTTP GET
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewFetcher creates a Fetcher. The client is shared with document downloads
// so cookies set by the listing page apply to them too.
func NewFetcher(httpClient *http.Client, userAgent string, maxBytes int64) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = 5_000_000
	}
	return &Fetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
	}
}

// Fetch retrieves the HTML at rawURL, truncated to the configured size limit
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		HTML:     string(body),
		FinalURL: resp.Request.URL.String(),
		Meta: FetchMeta{
			StatusCode:   resp.StatusCode,
			ContentType:  resp.Header.Get("Content-Type"),
			LastModified: resp.Header.Get("Last-Modified"),
			ETag:         resp.Header.Get("ETag"),
			FetchedAt:    time.Now().UTC(),
		},
	}, nil
}
