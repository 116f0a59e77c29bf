package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Document is a report file discovered on a source's listing page
type Document struct {
	Source       string    `json:"source"`                  // Source folder name
	Filename     string    `json:"filename"`                // Last path segment of the document URL
	URL          string    `json:"url"`                     // Absolute download URL
	Path         string    `json:"path,omitempty"`          // Local path once downloaded
	DownloadedAt time.Time `json:"downloaded_at,omitempty"` // Zero when the file already existed
}

// SentimentScore holds VADER-style polarity scores.
// Negative, Neutral and Positive are in [0, 1]; Compound is in [-1, 1].
type SentimentScore struct {
	Negative float64 `json:"neg"`
	Neutral  float64 `json:"neu"`
	Positive float64 `json:"pos"`
	Compound float64 `json:"compound"`
}

// String renders the score as a mapping, e.g. {'neg': 0.0, 'neu': 0.874, 'pos': 0.126, 'compound': 0.9186}
func (s SentimentScore) String() string {
	return fmt.Sprintf("{'neg': %s, 'neu': %s, 'pos': %s, 'compound': %s}",
		formatScore(s.Negative), formatScore(s.Neutral), formatScore(s.Positive), formatScore(s.Compound))
}

// formatScore rounds to 4 places and always keeps a decimal point
func formatScore(v float64) string {
	out := decimal.NewFromFloat(v).Round(4).String()
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

// Report is the per-document summary persisted to disk
type Report struct {
	Source    string         `json:"source"`
	Filename  string         `json:"filename"`
	Summary   string         `json:"summary"`
	Sentiment SentimentScore `json:"sentiment"`
}

// DocumentStatus is the outcome of processing one discovered document
type DocumentStatus string

const (
	StatusReported      DocumentStatus = "reported"       // Report written
	StatusAlreadyDone   DocumentStatus = "already_done"   // Non-empty report existed
	StatusEmptyText     DocumentStatus = "empty_text"     // No extractable text
	StatusEmptySummary  DocumentStatus = "empty_summary"  // Summarizer produced nothing
	StatusDownloadError DocumentStatus = "download_error" // Could not fetch the document
	StatusExtractError  DocumentStatus = "extract_error"  // Corrupt or unreadable document
	StatusWriteError    DocumentStatus = "write_error"    // Report could not be persisted
	StatusInternalError DocumentStatus = "internal_error" // Recovered panic while processing
)

// Skipped reports whether the status is a non-error skip
func (s DocumentStatus) Skipped() bool {
	return s == StatusAlreadyDone || s == StatusEmptyText || s == StatusEmptySummary
}

// Failed reports whether the status is an error
func (s DocumentStatus) Failed() bool {
	switch s {
	case StatusDownloadError, StatusExtractError, StatusWriteError, StatusInternalError:
		return true
	}
	return false
}

// DocumentOutcome records what happened to one document during a run
type DocumentOutcome struct {
	Document Document       `json:"document"`
	Status   DocumentStatus `json:"status"`
	Error    string         `json:"error,omitempty"`
}

// RunResult summarises one pipeline run for one source
type RunResult struct {
	RunID      string            `json:"run_id"`
	Source     string            `json:"source"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Discovered int               `json:"discovered"`
	Documents  []DocumentOutcome `json:"documents,omitempty"`
	MergedPath string            `json:"merged_path,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Count returns how many documents ended with the given status
func (r *RunResult) Count(status DocumentStatus) int {
	n := 0
	for _, d := range r.Documents {
		if d.Status == status {
			n++
		}
	}
	return n
}

// Failures returns how many documents failed
func (r *RunResult) Failures() int {
	n := 0
	for _, d := range r.Documents {
		if d.Status.Failed() {
			n++
		}
	}
	return n
}

// Duration is the wall time of the run
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
