package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Renderer loads listing pages in a headless browser for sites that build
// their document links with JavaScript
type Renderer struct {
	timeout   time.Duration
	headless  bool
	execPath  string
	userAgent string
}

// NewRenderer creates a renderer; timeout bounds navigation plus the wait for <body>
func NewRenderer(timeout time.Duration, headless bool, execPath, userAgent string) *Renderer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Renderer{
		timeout:   timeout,
		headless:  headless,
		execPath:  execPath,
		userAgent: userAgent,
	}
}

// Fetch renders rawURL and returns the resulting DOM.
// Each call owns one browser and one tab, both released before returning.
func (r *Renderer) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.headless),
		chromedp.DisableGPU,
	)
	if r.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(r.userAgent))
	}
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTimeout()

	var html, location string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", rawURL, err)
	}

	if location == "" {
		location = rawURL
	}

	return &FetchResult{
		HTML:     html,
		FinalURL: location,
		Meta: FetchMeta{
			FetchedAt: time.Now().UTC(),
			Rendered:  true,
		},
	}, nil
}
