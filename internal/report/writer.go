package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/reportwatch/internal/model"
	"github.com/ppiankov/reportwatch/internal/store"
)

// Writer persists per-document reports under <root>/<source>/ and merges them
// into <root>/<source>_summary.txt.
type Writer struct {
	root   string
	logger *zap.Logger
}

// NewWriter creates a report writer rooted at root (e.g. reports/summarized_reports)
func NewWriter(root string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{root: root, logger: logger}
}

// Root returns the summary directory
func (w *Writer) Root() string {
	return w.root
}

// Path returns the report location for a document: <root>/<source>/<filename>.txt
func (w *Writer) Path(source, filename string) string {
	return filepath.Join(w.root, source, store.SanitizeFilename(filename)+".txt")
}

// Render formats a report exactly as it is written to disk
func Render(r model.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SUMMARY OF %s:\n\n", r.Filename)
	b.WriteString("Summary:\n")
	b.WriteString(r.Summary)
	b.WriteString("\n\nSentiment Analysis:\n")
	b.WriteString(r.Sentiment.String())
	b.WriteString("\n")
	return b.String()
}

// Write persists the report and returns its path. Existing files are overwritten.
func (w *Writer) Write(r model.Report) (string, error) {
	dir := filepath.Join(w.root, r.Source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report folder: %w", err)
	}

	path := w.Path(r.Source, r.Filename)
	if err := os.WriteFile(path, []byte(Render(r)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	w.logger.Info("wrote report", zap.String("source", r.Source), zap.String("path", path))
	return path, nil
}

// Exists reports whether a non-empty report is already on disk.
// A whitespace-only file counts as missing so the document is reprocessed.
func (w *Writer) Exists(source, filename string) bool {
	data, err := os.ReadFile(w.Path(source, filename))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) != ""
}

// List returns the report file names for a source in ascending order
func (w *Writer) List(source string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(w.root, source))
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Merge concatenates every report of source into <root>/<mergedFilename>,
// replacing any previous merge. A missing source folder is logged and skipped.
// An empty mergedFilename defaults to <source>_summary.txt.
func (w *Writer) Merge(source, mergedFilename string) (string, error) {
	if mergedFilename == "" {
		mergedFilename = source + "_summary.txt"
	}

	names, err := w.List(source)
	if err != nil {
		if os.IsNotExist(err) {
			w.logger.Warn("no reports to merge", zap.String("source", source))
			return "", nil
		}
		return "", fmt.Errorf("list reports: %w", err)
	}

	var b strings.Builder
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(w.root, source, name))
		if err != nil {
			return "", fmt.Errorf("read report %s: %w", name, err)
		}
		fmt.Fprintf(&b, "=== SUMMARY FROM %s ===\n\n", name)
		b.Write(content)
		b.WriteString("\n\n")
	}

	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return "", fmt.Errorf("create summary folder: %w", err)
	}

	path := filepath.Join(w.root, mergedFilename)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write merged report: %w", err)
	}

	w.logger.Info("merged reports",
		zap.String("source", source),
		zap.Int("reports", len(names)),
		zap.String("path", path))
	return path, nil
}
