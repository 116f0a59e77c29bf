package validate

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/reportwatch/internal/model"
)

// Sources checks a user-supplied source catalog and reports every problem at once
func Sources(sources []model.Source) error {
	if len(sources) == 0 {
		return errors.New("no sources configured")
	}

	var errs []error
	names := make(map[string]bool)
	folders := make(map[string]string)

	for i, s := range sources {
		label := s.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		fail := func(format string, args ...any) {
			errs = append(errs, fmt.Errorf("source %s: %s", label, fmt.Sprintf(format, args...)))
		}

		if strings.TrimSpace(s.Name) == "" {
			fail("name is required")
		} else if names[s.Name] {
			fail("duplicate name")
		}
		names[s.Name] = true

		switch {
		case s.Folder == "":
			fail("folder is required")
		case strings.ContainsAny(s.Folder, `/\`) || s.Folder == "." || s.Folder == "..":
			fail("folder %q must be a single path segment", s.Folder)
		case folders[s.Folder] != "":
			fail("folder %q already used by %s", s.Folder, folders[s.Folder])
		default:
			folders[s.Folder] = label
		}

		if err := absoluteHTTPURL(s.ListingURL); err != nil {
			fail("listing_url: %v", err)
		}
		if s.BaseURL != "" {
			if err := absoluteHTTPURL(s.BaseURL); err != nil {
				fail("base_url: %v", err)
			}
		}

		switch s.Strategy {
		case model.StrategyStatic, model.StrategyRendered:
		default:
			fail("unknown strategy %q (want static or rendered)", s.Strategy)
		}

		if s.Match.IsZero() {
			fail("match needs href_suffix, href_contains or text_pattern")
		}
		if s.Match.TextPattern != "" {
			if _, err := regexp.Compile(s.Match.TextPattern); err != nil {
				fail("text_pattern: %v", err)
			}
		}

		if s.MaxLinks < 0 {
			fail("max_links must not be negative")
		}

		switch s.SentimentTarget {
		case model.SentimentOnText, model.SentimentOnSummary:
		default:
			fail("unknown sentiment_target %q (want text or summary)", s.SentimentTarget)
		}
	}

	return errors.Join(errs...)
}

func absoluteHTTPURL(raw string) error {
	if raw == "" {
		return errors.New("required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}
