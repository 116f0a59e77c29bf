package extract

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// ErrUnsupported is returned when no extractor handles a document's content type
var ErrUnsupported = errors.New("unsupported document type")

// Extractor turns one kind of document into plain text
type Extractor interface {
	// Name returns the extractor name
	Name() string

	// CanHandle checks if this extractor handles the sniffed content type
	CanHandle(contentType string) bool

	// Extract returns the document text. Empty text is not an error.
	Extract(path string) (string, error)
}

// Registry dispatches documents to extractors by sniffed content type
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a registry with the PDF and HTML extractors
func NewRegistry() *Registry {
	registry := &Registry{}
	registry.Register(NewPDFExtractor())
	registry.Register(NewHTMLExtractor())
	return registry
}

// Register adds an extractor; earlier registrations win
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// Extract returns the plain text of the document at path
func (r *Registry) Extract(path string) (string, error) {
	contentType, err := SniffContentType(path)
	if err != nil {
		return "", err
	}

	for _, e := range r.extractors {
		if e.CanHandle(contentType) {
			text, err := e.Extract(path)
			if err != nil {
				return "", fmt.Errorf("%s: %w", e.Name(), err)
			}
			return text, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupported, contentType)
}

// SniffContentType detects the media type from the first 512 bytes of the file
func SniffContentType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read document: %w", err)
	}

	contentType := http.DetectContentType(head[:n])
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(contentType), nil
}
