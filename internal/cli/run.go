package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/reportwatch/internal/llm"
	"github.com/ppiankov/reportwatch/internal/model"
	"github.com/ppiankov/reportwatch/internal/pipeline"
	"github.com/ppiankov/reportwatch/internal/telemetry"
	"github.com/ppiankov/reportwatch/internal/worker"
)

var (
	runAll         bool
	runFile        string
	runConcurrency int
	runTimeout     time.Duration
	runProvider    string
	runModel       string
	noCache        bool
	respectRobots  bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [source...]",
	Short: "Run the report pipeline once for the named sources",
	Long: `Run fetches each source's listing page, downloads new reports,
summarizes them, scores their sentiment and merges the per-report files.

Sources are named by their display name as shown by 'reportwatch sources'.
Already downloaded documents and already written reports are skipped.

Example:
  reportwatch run "Baron Capital" Hoisington
  reportwatch run --all --concurrency 4
  reportwatch run --file sources.txt --timeout 30m`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runAll, "all", false, "run every source in the catalog")
	runCmd.Flags().StringVar(&runFile, "file", "", "read source names from a file (one per line)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "sources run at once (default: concurrency.sources from config)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", time.Hour, "total timeout for the run")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "summarizer provider: huggingface, openai, anthropic, ollama")
	runCmd.Flags().StringVar(&runModel, "model", "", "summarizer model name")
	runCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable listing cache (force fresh fetch)")
	runCmd.Flags().BoolVar(&respectRobots, "respect-robots", false, "check robots.txt before fetching listing pages")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	applyRunFlags(cmd, cfg)

	names := args
	if runFile != "" {
		fromFile, err := worker.ReadNamesFromFile(runFile)
		if err != nil {
			return fmt.Errorf("read sources file: %w", err)
		}
		names = append(names, fromFile...)
	}

	catalog := model.NewCatalog(cfg.Sources)
	var sources []model.Source
	switch {
	case runAll:
		sources = catalog.All()
	case len(names) == 0:
		return errors.New("no sources given: name sources, use --file, or pass --all")
	default:
		sources, err = resolveSources(catalog, names)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry.Enabled, "reportwatch", version, nil)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}

	concurrency := cfg.Concurrency.Sources
	if concurrency > len(sources) {
		concurrency = len(sources)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  reportwatch run\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Sources:      %d\n", len(sources))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Storage:      %s\n", cfg.Storage.Root)
	fmt.Fprintf(os.Stderr, "  Summarizer:   %s/%s\n", cfg.Summarizer.Provider, summarizerModel(cfg))
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", runTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	results := worker.NewBatchRunner(p, concurrency, logger).RunSources(ctx, sources)

	failed := printRunSummary(results)
	if failed > 0 {
		logger.Warn("run finished with failures", zap.Int("failed_sources", failed))
		return fmt.Errorf("%d of %d sources failed", failed, len(results))
	}
	return nil
}

// applyRunFlags lets explicitly set flags override the loaded configuration
func applyRunFlags(cmd *cobra.Command, cfg *model.Config) {
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Sources = runConcurrency
	}
	if runProvider != "" && !strings.EqualFold(runProvider, cfg.Summarizer.Provider) {
		cfg.Summarizer.Provider = runProvider
		// A configured model belongs to the configured provider
		cfg.Summarizer.Model = ""
	}
	if runModel != "" {
		cfg.Summarizer.Model = runModel
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if respectRobots {
		cfg.HTTP.RespectRobots = true
	}
}

func summarizerModel(cfg *model.Config) string {
	if cfg.Summarizer.Model != "" {
		return cfg.Summarizer.Model
	}
	return llm.DefaultModel(cfg.Summarizer.Provider)
}

// printRunSummary writes one line per source and the totals; it returns the failed source count
func printRunSummary(results []*worker.SourceResult) int {
	var failed, reported, skipped, docFailures int

	for _, r := range results {
		if r.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Source.Name, r.Error)
			continue
		}

		run := r.Run
		if run == nil {
			continue
		}
		var s, f int
		for _, d := range run.Documents {
			switch {
			case d.Status.Skipped():
				s++
			case d.Status.Failed():
				f++
			}
		}
		reported += run.Count(model.StatusReported)
		skipped += s
		docFailures += f

		fmt.Fprintf(os.Stderr, "✓ %s: %d discovered, %d reported, %d skipped, %d failed (%v)\n",
			r.Source.Name, run.Discovered, run.Count(model.StatusReported), s, f, run.Duration().Round(time.Millisecond))
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Run Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Sources:    %d (%d failed)\n", len(results), failed)
	fmt.Fprintf(os.Stderr, "  Reported:   %d\n", reported)
	fmt.Fprintf(os.Stderr, "  Skipped:    %d\n", skipped)
	fmt.Fprintf(os.Stderr, "  Failures:   %d\n", docFailures)
	fmt.Fprintf(os.Stderr, "\n")

	return failed
}
