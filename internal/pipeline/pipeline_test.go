package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/reportwatch/internal/model"
	"github.com/ppiankov/reportwatch/internal/report"
	"github.com/ppiankov/reportwatch/internal/score"
	"github.com/ppiankov/reportwatch/internal/store"
)

// fileExtractor treats the downloaded bytes as the document text
type fileExtractor struct {
	failOn string
}

func (e *fileExtractor) Extract(path string) (string, error) {
	if e.failOn != "" && filepath.Base(path) == e.failOn {
		return "", errors.New("corrupt PDF")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type fakeSummarizer struct {
	calls atomic.Int32
	out   string
}

func (s *fakeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	s.calls.Add(1)
	if s.out != "" {
		return s.out, nil
	}
	return "Summary: " + text, nil
}

type panicScorer struct{}

func (panicScorer) Score(text string) model.SentimentScore {
	panic("scorer exploded")
}

type recordingScorer struct {
	inputs []string
}

func (s *recordingScorer) Score(text string) model.SentimentScore {
	s.inputs = append(s.inputs, text)
	return score.NewScorer().Score(text)
}

type robotsFunc func(rawURL string) bool

func (f robotsFunc) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	return f(rawURL), 0, nil
}

type fixtureDoc struct {
	name, label, text string
}

type fixture struct {
	server     *httptest.Server
	downloads  atomic.Int32
	root       string
	reports    *report.Writer
	summarizer *fakeSummarizer
	extractor  *fileExtractor
	source     model.Source
	docs       []fixtureDoc
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		root:       t.TempDir(),
		summarizer: &fakeSummarizer{},
		extractor:  &fileExtractor{},
		docs: []fixtureDoc{
			{"growth.pdf", "Growth outlook", "Revenue grew strongly and the outlook is excellent."},
			{"losses.pdf", "Loss warning", "The company reported terrible losses and a bleak outlook."},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/reports", func(w http.ResponseWriter, r *http.Request) {
		var sb strings.Builder
		sb.WriteString("<html><body>\n")
		for _, d := range f.docs {
			fmt.Fprintf(&sb, "<a href=\"/files/%s\">%s</a>\n", d.name, d.label)
		}
		sb.WriteString("<a href=\"/contact\">Contact</a>\n</body></html>")
		_, _ = fmt.Fprint(w, sb.String())
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/files/")
		for _, d := range f.docs {
			if d.name == name {
				f.downloads.Add(1)
				_, _ = fmt.Fprint(w, d.text)
				return
			}
		}
		http.NotFound(w, r)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	f.reports = report.NewWriter(filepath.Join(f.root, "summarized_reports"), nil)
	f.source = model.Source{
		Name:            "Acme",
		Folder:          "acme_reports",
		ListingURL:      f.server.URL + "/reports",
		Strategy:        model.StrategyStatic,
		Match:           model.LinkMatch{HrefSuffix: ".pdf"},
		SentimentTarget: model.SentimentOnSummary,
	}
	return f
}

func (f *fixture) pipeline() *Pipeline {
	return New(Components{
		Static:     NewFetcher(f.server.Client(), "test-agent", 0),
		Documents:  store.NewDocumentStore(f.root, f.server.Client(), "test-agent", nil, nil),
		Extractor:  f.extractor,
		Summarizer: f.summarizer,
		Scorer:     score.NewScorer(),
		Reports:    f.reports,
	})
}

func TestPipeline_Run_EndToEnd(t *testing.T) {
	f := newFixture(t)

	result, err := f.pipeline().Run(context.Background(), f.source)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.RunID == "" {
		t.Error("expected run ID")
	}
	if result.Discovered != 2 {
		t.Fatalf("expected 2 discovered documents, got %d", result.Discovered)
	}
	if got := result.Count(model.StatusReported); got != 2 {
		t.Errorf("expected 2 reported, got %d: %+v", got, result.Documents)
	}

	for _, name := range []string{"growth.pdf", "losses.pdf"} {
		if _, err := os.Stat(filepath.Join(f.root, "acme_reports", name)); err != nil {
			t.Errorf("expected downloaded %s: %v", name, err)
		}
		if !f.reports.Exists("acme_reports", name) {
			t.Errorf("expected report for %s", name)
		}
	}

	merged, err := os.ReadFile(result.MergedPath)
	if err != nil {
		t.Fatalf("read merged: %v", err)
	}
	if filepath.Base(result.MergedPath) != "acme_reports_summary.txt" {
		t.Errorf("unexpected merged file %q", result.MergedPath)
	}
	if got := strings.Count(string(merged), "=== SUMMARY FROM "); got != 2 {
		t.Errorf("expected exactly 2 merged reports, got %d", got)
	}
	for _, want := range []string{"=== SUMMARY FROM growth.pdf.txt ===", "=== SUMMARY FROM losses.pdf.txt ===", "Sentiment Analysis:"} {
		if !strings.Contains(string(merged), want) {
			t.Errorf("merged summary missing %q", want)
		}
	}

	growth, _ := os.ReadFile(f.reports.Path("acme_reports", "growth.pdf"))
	if !strings.HasPrefix(string(growth), "SUMMARY OF growth.pdf:") {
		t.Errorf("unexpected report header: %q", string(growth))
	}
}

func TestPipeline_Run_Idempotent(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline()

	if _, err := p.Run(context.Background(), f.source); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	result, err := p.Run(context.Background(), f.source)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if got := result.Count(model.StatusAlreadyDone); got != 2 {
		t.Errorf("expected 2 already_done on rerun, got %d", got)
	}
	if f.downloads.Load() != 2 {
		t.Errorf("expected each document downloaded once, got %d downloads", f.downloads.Load())
	}
	if f.summarizer.calls.Load() != 2 {
		t.Errorf("expected summarizer called twice overall, got %d", f.summarizer.calls.Load())
	}
	for _, d := range result.Documents {
		if !d.Document.DownloadedAt.IsZero() {
			t.Errorf("expected zero DownloadedAt for existing file %s", d.Document.Filename)
		}
	}
}

func TestPipeline_Run_PartialFailure(t *testing.T) {
	f := newFixture(t)
	f.docs = append(f.docs, fixtureDoc{"dividends.pdf", "Dividend notice", "Dividends were raised for the tenth year."})
	f.extractor.failOn = "losses.pdf"

	result, err := f.pipeline().Run(context.Background(), f.source)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Discovered != 3 {
		t.Fatalf("expected 3 discovered documents, got %d", result.Discovered)
	}

	statuses := map[string]model.DocumentStatus{}
	for _, d := range result.Documents {
		statuses[d.Document.Filename] = d.Status
	}
	for _, name := range []string{"growth.pdf", "dividends.pdf"} {
		if statuses[name] != model.StatusReported {
			t.Errorf("expected %s reported, got %s", name, statuses[name])
		}
	}
	if statuses["losses.pdf"] != model.StatusExtractError {
		t.Errorf("expected losses.pdf extract_error, got %s", statuses["losses.pdf"])
	}
	if result.Failures() != 1 {
		t.Errorf("expected 1 failure, got %d", result.Failures())
	}
	if f.reports.Exists("acme_reports", "losses.pdf") {
		t.Error("no report expected for failed document")
	}

	merged, err := os.ReadFile(result.MergedPath)
	if err != nil {
		t.Fatalf("read merged: %v", err)
	}
	if got := strings.Count(string(merged), "=== SUMMARY FROM "); got != 2 {
		t.Errorf("expected the 2 successful reports merged, got %d", got)
	}
}

func TestPipeline_ProcessDocument_EmptyText(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline()

	dir := filepath.Join(f.root, "acme_reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "blank.pdf"), []byte("   \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	outcome := p.ProcessDocument(context.Background(), f.source, model.Document{
		Source:   "acme_reports",
		Filename: "blank.pdf",
		URL:      f.server.URL + "/files/blank.pdf",
	})
	if outcome.Status != model.StatusEmptyText {
		t.Errorf("expected empty_text, got %s (%s)", outcome.Status, outcome.Error)
	}
	if f.summarizer.calls.Load() != 0 {
		t.Error("summarizer must not be called for empty text")
	}
}

func TestPipeline_ProcessDocument_EmptySummary(t *testing.T) {
	f := newFixture(t)
	f.summarizer.out = "   "

	outcome := f.pipeline().ProcessDocument(context.Background(), f.source, model.Document{
		Filename: "growth.pdf",
		URL:      f.server.URL + "/files/growth.pdf",
	})
	if outcome.Status != model.StatusEmptySummary {
		t.Errorf("expected empty_summary, got %s", outcome.Status)
	}
	if f.reports.Exists("acme_reports", "growth.pdf") {
		t.Error("no report expected for empty summary")
	}
}

func TestPipeline_ProcessDocument_DownloadError(t *testing.T) {
	f := newFixture(t)

	outcome := f.pipeline().ProcessDocument(context.Background(), f.source, model.Document{
		Filename: "missing.pdf",
		URL:      f.server.URL + "/files/missing.pdf",
	})
	if outcome.Status != model.StatusDownloadError {
		t.Errorf("expected download_error, got %s", outcome.Status)
	}
	if outcome.Error == "" {
		t.Error("expected error message")
	}
}

func TestPipeline_ProcessDocument_RecoversPanic(t *testing.T) {
	f := newFixture(t)
	p := New(Components{
		Static:     NewFetcher(f.server.Client(), "test-agent", 0),
		Documents:  store.NewDocumentStore(f.root, f.server.Client(), "test-agent", nil, nil),
		Extractor:  f.extractor,
		Summarizer: f.summarizer,
		Scorer:     panicScorer{},
		Reports:    f.reports,
	})

	outcome := p.ProcessDocument(context.Background(), f.source, model.Document{
		Filename: "growth.pdf",
		URL:      f.server.URL + "/files/growth.pdf",
	})
	if outcome.Status != model.StatusInternalError {
		t.Errorf("expected internal_error, got %s", outcome.Status)
	}
	if !strings.Contains(outcome.Error, "scorer exploded") {
		t.Errorf("expected panic message in error, got %q", outcome.Error)
	}
}

func TestPipeline_ProcessDocument_SentimentTarget(t *testing.T) {
	const text = "Revenue grew strongly and the outlook is excellent."

	tests := []struct {
		name   string
		target model.SentimentTarget
		want   string
	}{
		{"full text", model.SentimentOnText, text},
		{"summary", model.SentimentOnSummary, "Summary: " + text},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.source.SentimentTarget = tt.target
			scorer := &recordingScorer{}
			p := New(Components{
				Static:     NewFetcher(f.server.Client(), "test-agent", 0),
				Documents:  store.NewDocumentStore(f.root, f.server.Client(), "test-agent", nil, nil),
				Extractor:  f.extractor,
				Summarizer: f.summarizer,
				Scorer:     scorer,
				Reports:    f.reports,
			})

			outcome := p.ProcessDocument(context.Background(), f.source, model.Document{
				Filename: "growth.pdf",
				URL:      f.server.URL + "/files/growth.pdf",
			})
			if outcome.Status != model.StatusReported {
				t.Fatalf("expected reported, got %s (%s)", outcome.Status, outcome.Error)
			}
			if len(scorer.inputs) != 1 || scorer.inputs[0] != tt.want {
				t.Errorf("expected scorer input %q, got %q", tt.want, scorer.inputs)
			}
		})
	}
}

func TestPipeline_Run_ListingFailure(t *testing.T) {
	f := newFixture(t)
	f.source.ListingURL = f.server.URL + "/nope"

	result, err := f.pipeline().Run(context.Background(), f.source)
	if err == nil {
		t.Fatal("expected listing failure")
	}
	if result == nil || result.Error == "" {
		t.Fatal("expected result with error recorded")
	}
	if len(result.Documents) != 0 {
		t.Errorf("expected no documents processed, got %d", len(result.Documents))
	}
	if f.downloads.Load() != 0 {
		t.Error("no downloads expected after listing failure")
	}
}

func TestPipeline_Run_RobotsDisallowed(t *testing.T) {
	f := newFixture(t)
	p := New(Components{
		Static:     NewFetcher(f.server.Client(), "test-agent", 0),
		Documents:  store.NewDocumentStore(f.root, f.server.Client(), "test-agent", nil, nil),
		Extractor:  f.extractor,
		Summarizer: f.summarizer,
		Scorer:     score.NewScorer(),
		Reports:    f.reports,
		Robots:     robotsFunc(func(string) bool { return false }),
	})

	_, err := p.Run(context.Background(), f.source)
	if !errors.Is(err, ErrDisallowed) {
		t.Errorf("expected ErrDisallowed, got %v", err)
	}
}

func TestPipeline_Run_UnknownStrategyHasNoSource(t *testing.T) {
	f := newFixture(t)
	f.source.Strategy = model.StrategyRendered

	_, err := f.pipeline().Run(context.Background(), f.source)
	if err == nil {
		t.Fatal("expected error when no rendered listing source is configured")
	}
}

func TestPipeline_Run_NoMatchesStillMerges(t *testing.T) {
	f := newFixture(t)
	f.source.Match = model.LinkMatch{HrefSuffix: ".xlsx"}

	result, err := f.pipeline().Run(context.Background(), f.source)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Discovered != 0 {
		t.Errorf("expected nothing discovered, got %d", result.Discovered)
	}
	if result.MergedPath != "" {
		t.Errorf("expected no merged file without reports, got %q", result.MergedPath)
	}
}

func TestNewClients_RedirectLimits(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/set" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			return
		}
		hops := strings.Count(r.URL.Path, "x")
		if hops < 10 {
			http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
			return
		}
		if c, err := r.Cookie("session"); err != nil || c.Value != "abc" {
			http.Error(w, "no session", http.StatusForbidden)
			return
		}
		_, _ = fmt.Fprint(w, "report")
	}))
	defer server.Close()

	listing, download, err := newClients(model.DefaultConfig())
	if err != nil {
		t.Fatalf("newClients failed: %v", err)
	}

	resp, err := listing.Get(server.URL + "/set")
	if err != nil {
		t.Fatalf("listing request failed: %v", err)
	}
	_ = resp.Body.Close()

	if resp, err := listing.Get(server.URL + "/doc"); err == nil {
		_ = resp.Body.Close()
		t.Error("expected listing client to stop after a few redirects")
	}

	resp, err = download.Get(server.URL + "/doc")
	if err != nil {
		t.Fatalf("expected download client to follow 10 redirects: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with shared session cookie, got %d", resp.StatusCode)
	}
}
