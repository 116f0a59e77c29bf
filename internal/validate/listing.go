package validate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/reportwatch/internal/model"
)

const checkMaxRetries = 3

// checkSleepFunc is the sleep function used between retries (injectable for tests)
var checkSleepFunc = time.Sleep

// ListingStatus is the reachability of one source's listing page
type ListingStatus struct {
	Source       string     `json:"source"`
	URL          string     `json:"url"`
	StatusCode   int        `json:"status_code,omitempty"`
	Reachable    bool       `json:"reachable"`
	RedirectURL  string     `json:"redirect_url,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// ListingChecker probes source listing pages concurrently
type ListingChecker struct {
	httpClient *http.Client
	userAgent  string
	maxWorkers int
}

// NewListingChecker creates a checker using httpClient
func NewListingChecker(httpClient *http.Client, userAgent string, maxWorkers int) *ListingChecker {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	return &ListingChecker{
		httpClient: httpClient,
		userAgent:  userAgent,
		maxWorkers: maxWorkers,
	}
}

// Check probes every source's listing URL; results keep the input order
func (c *ListingChecker) Check(ctx context.Context, sources []model.Source) []ListingStatus {
	results := make([]ListingStatus, len(sources))
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, c.maxWorkers)

	for i, src := range sources {
		wg.Add(1)
		go func(idx int, s model.Source) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = ListingStatus{Source: s.Name, URL: s.ListingURL, Error: "context cancelled"}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = c.checkWithRetry(ctx, s)
		}(i, src)
	}

	wg.Wait()
	return results
}

func (c *ListingChecker) checkOnce(ctx context.Context, s model.Source) ListingStatus {
	status := ListingStatus{Source: s.Name, URL: s.ListingURL}

	resp, err := c.do(ctx, http.MethodHead, s.ListingURL)
	if err == nil && resp.StatusCode == http.StatusMethodNotAllowed {
		_ = resp.Body.Close()
		resp, err = c.do(ctx, http.MethodGet, s.ListingURL)
	}
	if err != nil {
		status.Error = fmt.Sprintf("request failed: %v", err)
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	status.StatusCode = resp.StatusCode
	status.Reachable = resp.StatusCode >= 200 && resp.StatusCode < 400

	if final := resp.Request.URL.String(); final != s.ListingURL {
		status.RedirectURL = final
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			status.LastModified = &t
		}
	}

	return status
}

func (c *ListingChecker) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

// checkWithRetry retries transient failures with exponential backoff
func (c *ListingChecker) checkWithRetry(ctx context.Context, s model.Source) ListingStatus {
	var status ListingStatus
	for attempt := 0; attempt < checkMaxRetries; attempt++ {
		status = c.checkOnce(ctx, s)
		if !isRetryable(status) || ctx.Err() != nil {
			return status
		}
		if attempt < checkMaxRetries-1 {
			checkSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return status
}

// isRetryable returns true for statuses that indicate transient failures
func isRetryable(s ListingStatus) bool {
	if s.StatusCode >= 500 || s.StatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(s.Error)
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}
