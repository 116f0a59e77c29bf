package pipeline

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/reportwatch/internal/model"
)

// Discover finds the document links on a listing page.
// Anchors matching any of the source's rules are kept, resolved against the
// source base URL and de-duplicated in page order, up to MaxLinks.
func Discover(html string, source model.Source) ([]model.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	base, err := url.Parse(source.ResolveBase())
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	var textPattern *regexp.Regexp
	if source.Match.TextPattern != "" {
		textPattern, err = regexp.Compile("(?i)" + source.Match.TextPattern)
		if err != nil {
			return nil, fmt.Errorf("compile text pattern: %w", err)
		}
	}

	var docs []model.Document
	seen := make(map[string]bool)

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return true
		}

		if !matches(source.Match, textPattern, href, a.Text()) {
			return true
		}

		resolved, ok := resolve(base, href)
		if !ok || seen[resolved.String()] {
			return true
		}
		seen[resolved.String()] = true

		docs = append(docs, model.Document{
			Source:   source.Folder,
			Filename: filenameOf(resolved),
			URL:      resolved.String(),
		})

		return source.MaxLinks <= 0 || len(docs) < source.MaxLinks
	})

	return docs, nil
}

// matches applies the source's link rule; any configured rule may match
func matches(m model.LinkMatch, textPattern *regexp.Regexp, href, text string) bool {
	lower := strings.ToLower(href)

	if m.HrefSuffix != "" {
		bare := lower
		if i := strings.IndexAny(bare, "?#"); i >= 0 {
			bare = bare[:i]
		}
		if strings.HasSuffix(bare, strings.ToLower(m.HrefSuffix)) {
			return true
		}
	}

	if m.HrefContains != "" && strings.Contains(lower, strings.ToLower(m.HrefContains)) {
		return true
	}

	if textPattern != nil && textPattern.MatchString(strings.TrimSpace(text)) {
		return true
	}

	return false
}

// resolve turns href into an absolute http(s) URL without fragment
func resolve(base *url.URL, href string) (*url.URL, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}

	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return nil, false
	}
	abs.Fragment = ""
	return abs, true
}

// filenameOf is the last path segment of the document URL
func filenameOf(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	return name
}
