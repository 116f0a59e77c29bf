package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrUnexpectedStatus is returned when a download answers with a non-2xx status
var ErrUnexpectedStatus = errors.New("unexpected status")

// Limiter throttles requests per host
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// DocumentStore downloads documents into <root>/<source>/<filename>.
// A file already present on disk is never fetched again.
type DocumentStore struct {
	root       string
	httpClient *http.Client
	userAgent  string
	limiter    Limiter
	logger     *zap.Logger
}

// NewDocumentStore creates a store rooted at root. limiter and logger may be nil.
func NewDocumentStore(root string, httpClient *http.Client, userAgent string, limiter Limiter, logger *zap.Logger) *DocumentStore {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentStore{
		root:       root,
		httpClient: httpClient,
		userAgent:  userAgent,
		limiter:    limiter,
		logger:     logger,
	}
}

// Root returns the storage root directory
func (s *DocumentStore) Root() string {
	return s.root
}

// Path returns where a document for source/filename lives on disk
func (s *DocumentStore) Path(source, filename string) string {
	return filepath.Join(s.root, source, SanitizeFilename(filename))
}

// Exists reports whether the document is already on disk
func (s *DocumentStore) Exists(source, filename string) bool {
	info, err := os.Stat(s.Path(source, filename))
	return err == nil && !info.IsDir()
}

// Fetch returns the local path of the document, downloading it first if needed
func (s *DocumentStore) Fetch(ctx context.Context, rawURL, source, filename string) (string, error) {
	dest := s.Path(source, filename)
	if info, err := os.Stat(dest); err == nil && !info.IsDir() {
		s.logger.Debug("document already downloaded", zap.String("path", dest))
		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create source folder: %w", err)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, rawURL); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %d for %s", ErrUnexpectedStatus, resp.StatusCode, rawURL)
	}

	if err := writeAtomic(dest, resp.Body); err != nil {
		return "", err
	}

	s.logger.Info("downloaded document",
		zap.String("source", source),
		zap.String("file", filepath.Base(dest)))
	return dest, nil
}

// writeAtomic streams r into a temp file next to dest, then renames it into place
func writeAtomic(dest string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close document: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename document: %w", err)
	}
	return nil
}

// SanitizeFilename keeps only the base name so a URL segment cannot escape the source folder
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.FromSlash(name))
	if name == "." || name == ".." || name == string(filepath.Separator) || name == "" {
		return "document"
	}
	return name
}
