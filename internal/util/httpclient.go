package util

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"
)

// ClientOptions configures NewHTTPClient
type ClientOptions struct {
	Timeout      time.Duration
	InsecureTLS  bool
	MaxRedirects int // 0 means the default of 3
	HTTPProxy    string
	HTTPSProxy   string
	NoProxy      string
	Jar          http.CookieJar // nil creates a fresh jar
}

// NewHTTPClient builds a client for listing pages or downloads.
// Clients given the same Jar share cookies, so sites that set a session on
// the listing page also accept the follow-up document download.
func NewHTTPClient(opts ClientOptions) (*http.Client, error) {
	jar := opts.Jar
	if jar == nil {
		var err error
		jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
	}

	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 3
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy)
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed hosts
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}, nil
}
