package extract

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// HTMLExtractor reduces saved HTML documents to their readable article text
type HTMLExtractor struct{}

// NewHTMLExtractor creates an HTML extractor
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Name returns the extractor name
func (e *HTMLExtractor) Name() string {
	return "html"
}

// CanHandle checks for text/html
func (e *HTMLExtractor) CanHandle(contentType string) bool {
	return contentType == "text/html"
}

// Extract runs readability over the file and falls back to all visible text
// when readability finds no article.
func (e *HTMLExtractor) Extract(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open HTML: %w", err)
	}
	defer func() { _ = f.Close() }()

	pageURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	article, err := readability.FromReader(f, pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return strings.TrimSpace(article.TextContent), nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return "", fmt.Errorf("rewind HTML: %w", err)
	}
	doc, err := html.Parse(f)
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}
	return strings.TrimSpace(visibleText(doc)), nil
}

// visibleText collects text nodes, skipping scripts and styles
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}
