package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/reportwatch/internal/model"
)

// SourceRunner runs the pipeline for one source
type SourceRunner interface {
	Run(ctx context.Context, source model.Source) (*model.RunResult, error)
}

// SourceJob runs one source through the pipeline
type SourceJob struct {
	Index  int
	Source model.Source
	Runner SourceRunner
}

// Execute executes the source job
func (j *SourceJob) Execute(ctx context.Context) Result {
	result, err := j.Runner.Run(ctx, j.Source)
	return &SourceResult{
		Index:  j.Index,
		Source: j.Source,
		Run:    result,
		Error:  err,
	}
}

// SourceResult is the outcome of one source job
type SourceResult struct {
	Index  int
	Source model.Source
	Run    *model.RunResult
	Error  error
}

// GetError returns the error from the source run
func (r *SourceResult) GetError() error {
	return r.Error
}

// BatchRunner runs several sources concurrently.
// Runs of different sources share no state; a failing source never affects the others.
type BatchRunner struct {
	runner      SourceRunner
	concurrency int
	logger      *zap.Logger
}

// NewBatchRunner creates a batch runner running at most concurrency sources at once
func NewBatchRunner(runner SourceRunner, concurrency int, logger *zap.Logger) *BatchRunner {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchRunner{
		runner:      runner,
		concurrency: concurrency,
		logger:      logger,
	}
}

// RunSources runs every source and returns the results in input order.
// Sources not started because ctx was cancelled report ctx's error.
func (b *BatchRunner) RunSources(ctx context.Context, sources []model.Source) []*SourceResult {
	if len(sources) == 0 {
		return []*SourceResult{}
	}

	workers := b.concurrency
	if workers > len(sources) {
		workers = len(sources)
	}

	pool := NewPool(ctx, workers)
	pool.Start()

	for i, src := range sources {
		if !pool.Submit(&SourceJob{Index: i, Source: src, Runner: b.runner}) {
			break
		}
	}

	ordered := make([]*SourceResult, len(sources))
	for _, r := range pool.Wait() {
		sr := r.(*SourceResult)
		ordered[sr.Index] = sr
	}

	for i, src := range sources {
		if ordered[i] == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("source %s was not run", src.Name)
			}
			ordered[i] = &SourceResult{Index: i, Source: src, Error: err}
		}
		if ordered[i].Error != nil {
			b.logger.Warn("source run failed", zap.String("source", src.Name), zap.Error(ordered[i].Error))
		}
	}

	return ordered
}

// ReadNamesFromFile reads source display names from a file (one per line).
// Blank lines and # comments are skipped; duplicates are dropped.
func ReadNamesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var names []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			names = append(names, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return names, nil
}
