package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ppiankov/reportwatch/internal/cache"
	"github.com/ppiankov/reportwatch/internal/extract"
	"github.com/ppiankov/reportwatch/internal/llm"
	"github.com/ppiankov/reportwatch/internal/model"
	"github.com/ppiankov/reportwatch/internal/report"
	"github.com/ppiankov/reportwatch/internal/score"
	"github.com/ppiankov/reportwatch/internal/store"
	"github.com/ppiankov/reportwatch/internal/util"
	"github.com/ppiankov/reportwatch/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids fetching a listing page
var ErrDisallowed = errors.New("disallowed by robots.txt")

// DocumentFetcher downloads documents idempotently
type DocumentFetcher interface {
	Exists(source, filename string) bool
	Fetch(ctx context.Context, rawURL, source, filename string) (string, error)
}

// TextExtractor turns a downloaded document into plain text
type TextExtractor interface {
	Extract(path string) (string, error)
}

// Summarizer condenses extracted text
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SentimentScorer scores text polarity
type SentimentScorer interface {
	Score(text string) model.SentimentScore
}

// ReportStore persists and merges per-document reports
type ReportStore interface {
	Exists(source, filename string) bool
	Write(r model.Report) (string, error)
	Merge(source, mergedFilename string) (string, error)
}

// RobotsPolicy answers robots.txt questions for listing pages
type RobotsPolicy interface {
	CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error)
}

// CrawlDelayer applies a robots.txt crawl delay to later downloads from a host
type CrawlDelayer interface {
	SetCrawlDelay(host string, delay time.Duration)
}

// Components are the collaborators of a Pipeline. Robots, Delays and Tracer are optional.
type Components struct {
	Static     ListingSource
	Rendered   ListingSource
	Documents  DocumentFetcher
	Extractor  TextExtractor
	Summarizer Summarizer
	Scorer     SentimentScorer
	Reports    ReportStore
	Robots     RobotsPolicy
	Delays     CrawlDelayer
	Logger     *zap.Logger
	Tracer     trace.Tracer
}

// Pipeline runs the report workflow for one source at a time.
// All components are shared read-only, so one Pipeline may serve concurrent runs of different sources.
type Pipeline struct {
	c      Components
	logger *zap.Logger
	tracer trace.Tracer
}

// New creates a pipeline from explicit components
func New(c Components) *Pipeline {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := c.Tracer
	if tracer == nil {
		tracer = otel.Tracer("reportwatch/pipeline")
	}
	return &Pipeline{c: c, logger: logger, tracer: tracer}
}

// downloadMaxRedirects allows the long redirect chains of CDN-hosted documents
const downloadMaxRedirects = 30

// newClients builds the listing and download clients. They share one cookie jar.
func newClients(cfg *model.Config) (listing, download *http.Client, err error) {
	opts := util.ClientOptions{
		Timeout:     cfg.HTTP.Timeout,
		InsecureTLS: cfg.HTTP.InsecureTLS,
		HTTPProxy:   cfg.HTTP.HTTPProxy,
		HTTPSProxy:  cfg.HTTP.HTTPSProxy,
		NoProxy:     cfg.HTTP.NoProxy,
	}
	listing, err = util.NewHTTPClient(opts)
	if err != nil {
		return nil, nil, err
	}

	opts.Jar = listing.Jar
	opts.MaxRedirects = downloadMaxRedirects
	download, err = util.NewHTTPClient(opts)
	if err != nil {
		return nil, nil, err
	}
	return listing, download, nil
}

// NewPipeline wires the production components from configuration
func NewPipeline(cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient, downloadClient, err := newClients(cfg)
	if err != nil {
		return nil, err
	}

	summarizer, err := llm.NewSummarizer(llm.ConfigFromModel(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("init summarizer: %w", err)
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	var static, rendered ListingSource
	static = NewFetcher(httpClient, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes)
	rendered = NewRenderer(cfg.Render.Timeout, cfg.Render.Headless, cfg.Render.ExecPath, cfg.HTTP.UserAgent)

	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			dir = filepath.Join(cfg.Storage.Root, ".listing-cache")
		}
		listingCache := cache.NewLayeredCache(cfg.Cache.MemoryTTL, dir, cfg.Cache.DiskTTL)
		static = NewCachedListing(static, listingCache, string(model.StrategyStatic), cfg.Cache.DiskTTL, logger)
		rendered = NewCachedListing(rendered, listingCache, string(model.StrategyRendered), cfg.Cache.DiskTTL, logger)
	}

	c := Components{
		Static:     static,
		Rendered:   rendered,
		Documents:  store.NewDocumentStore(cfg.Storage.Root, downloadClient, cfg.HTTP.UserAgent, limiter, logger),
		Extractor:  extract.NewRegistry(),
		Summarizer: summarizer,
		Scorer:     score.NewScorer(),
		Reports:    report.NewWriter(filepath.Join(cfg.Storage.Root, cfg.Storage.SummaryDir), logger),
		Delays:     limiter,
		Logger:     logger,
	}
	if cfg.HTTP.RespectRobots {
		c.Robots = util.NewRobotsChecker(httpClient, cfg.HTTP.UserAgent)
	}

	return New(c), nil
}

// Run executes one full pass for source: fetch the listing, discover
// documents, process each one, then merge the reports.
// Only a listing failure (or a failed merge) is returned as an error;
// per-document problems are recorded in the result.
func (p *Pipeline) Run(ctx context.Context, source model.Source) (*model.RunResult, error) {
	result := &model.RunResult{
		RunID:     uuid.NewString(),
		Source:    source.Folder,
		StartedAt: time.Now().UTC(),
	}
	logger := p.logger.With(zap.String("run_id", result.RunID), zap.String("source", source.Name))

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run_id", result.RunID),
		attribute.String("source", source.Name),
		attribute.String("strategy", string(source.Strategy)),
	))
	defer span.End()

	fail := func(err error) (*model.RunResult, error) {
		result.Error = err.Error()
		result.FinishedAt = time.Now().UTC()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("run failed", zap.Error(err))
		return result, err
	}

	logger.Info("run started", zap.String("listing_url", source.ListingURL))

	listing, err := p.fetchListing(ctx, source, logger)
	if err != nil {
		return fail(fmt.Errorf("fetch listing for %s: %w", source.Name, err))
	}

	docs, err := Discover(listing.HTML, source)
	if err != nil {
		return fail(fmt.Errorf("discover documents for %s: %w", source.Name, err))
	}
	result.Discovered = len(docs)
	span.SetAttributes(attribute.Int("documents.discovered", len(docs)))
	logger.Info("documents discovered", zap.Int("count", len(docs)))

	for _, doc := range docs {
		if ctx.Err() != nil {
			logger.Warn("run interrupted", zap.Error(ctx.Err()))
			break
		}
		result.Documents = append(result.Documents, p.ProcessDocument(ctx, source, doc))
	}

	merged, err := p.c.Reports.Merge(source.Folder, source.MergedFilename())
	if err != nil {
		return fail(fmt.Errorf("merge reports for %s: %w", source.Name, err))
	}
	result.MergedPath = merged
	result.FinishedAt = time.Now().UTC()

	span.SetAttributes(
		attribute.Int("documents.reported", result.Count(model.StatusReported)),
		attribute.Int("documents.failed", result.Failures()),
	)
	logger.Info("run finished",
		zap.Int("reported", result.Count(model.StatusReported)),
		zap.Int("failed", result.Failures()),
		zap.Duration("duration", result.Duration()))

	return result, nil
}

func (p *Pipeline) fetchListing(ctx context.Context, source model.Source, logger *zap.Logger) (*FetchResult, error) {
	if p.c.Robots != nil {
		allowed, delay, err := p.c.Robots.CanFetch(ctx, source.ListingURL)
		switch {
		case err != nil:
			logger.Warn("robots check failed", zap.Error(err))
		case !allowed:
			return nil, ErrDisallowed
		case delay > 0 && p.c.Delays != nil:
			if host := hostOf(source.ResolveBase()); host != "" {
				p.c.Delays.SetCrawlDelay(host, delay)
			}
		}
	}

	var src ListingSource
	switch source.Strategy {
	case model.StrategyRendered:
		src = p.c.Rendered
	default:
		src = p.c.Static
	}
	if src == nil {
		return nil, fmt.Errorf("no listing source for strategy %q", source.Strategy)
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.listing")
	defer span.End()

	listing, err := src.Fetch(ctx, source.ListingURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("from_cache", listing.Meta.FromCache))
	return listing, nil
}

// ProcessDocument downloads, extracts, summarizes, scores and persists one
// document. It never returns an error: every problem becomes the outcome status.
func (p *Pipeline) ProcessDocument(ctx context.Context, source model.Source, doc model.Document) (outcome model.DocumentOutcome) {
	logger := p.logger.With(zap.String("source", source.Name), zap.String("file", doc.Filename))

	ctx, span := p.tracer.Start(ctx, "pipeline.document", trace.WithAttributes(
		attribute.String("file", doc.Filename),
	))
	defer span.End()

	outcome.Document = doc
	finish := func(status model.DocumentStatus, err error) model.DocumentOutcome {
		outcome.Status = status
		span.SetAttributes(attribute.String("status", string(status)))
		if err != nil {
			outcome.Error = err.Error()
			span.RecordError(err)
		}
		switch {
		case status.Failed():
			logger.Error("document failed", zap.String("status", string(status)), zap.Error(err))
		case status.Skipped():
			logger.Warn("document skipped", zap.String("status", string(status)))
		}
		return outcome
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = finish(model.StatusInternalError, fmt.Errorf("panic: %v", r))
		}
	}()

	existed := p.c.Documents.Exists(source.Folder, doc.Filename)
	path, err := p.c.Documents.Fetch(ctx, doc.URL, source.Folder, doc.Filename)
	if err != nil {
		return finish(model.StatusDownloadError, err)
	}
	outcome.Document.Path = path
	if !existed {
		outcome.Document.DownloadedAt = time.Now().UTC()
	}

	if p.c.Reports.Exists(source.Folder, doc.Filename) {
		logger.Debug("report already exists")
		return finish(model.StatusAlreadyDone, nil)
	}

	text, err := p.c.Extractor.Extract(path)
	if err != nil {
		return finish(model.StatusExtractError, err)
	}
	if strings.TrimSpace(text) == "" {
		return finish(model.StatusEmptyText, nil)
	}

	summary, err := p.c.Summarizer.Summarize(ctx, text)
	if err != nil {
		return finish(model.StatusEmptySummary, err)
	}
	if strings.TrimSpace(summary) == "" {
		return finish(model.StatusEmptySummary, nil)
	}

	sentimentInput := summary
	if source.SentimentTarget == model.SentimentOnText {
		sentimentInput = text
	}

	_, err = p.c.Reports.Write(model.Report{
		Source:    source.Folder,
		Filename:  doc.Filename,
		Summary:   summary,
		Sentiment: p.c.Scorer.Score(sentimentInput),
	})
	if err != nil {
		return finish(model.StatusWriteError, err)
	}

	return finish(model.StatusReported, nil)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
