package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/reportwatch/internal/model"
	"github.com/ppiankov/reportwatch/internal/pipeline"
	"github.com/ppiankov/reportwatch/internal/scheduler"
	"github.com/ppiankov/reportwatch/internal/telemetry"
	"github.com/ppiankov/reportwatch/internal/web"
	"github.com/ppiankov/reportwatch/internal/worker"
)

var (
	serveAddr       string
	serveInterval   time.Duration
	serveRunOnStart bool
	noScheduler     bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and the periodic scheduler",
	Long: `Serve starts a small web UI for running selected sources on demand
and a scheduler that re-runs every source on a fixed interval.

Example:
  reportwatch serve
  reportwatch serve --addr :5000 --interval 2h --run-on-start`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr from config)")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 0, "scheduler interval (default: schedule.interval from config)")
	serveCmd.Flags().BoolVar(&serveRunOnStart, "run-on-start", false, "run every source once at startup")
	serveCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve the UI only")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveInterval > 0 {
		cfg.Schedule.Interval = serveInterval
	}
	if serveRunOnStart {
		cfg.Schedule.RunOnStart = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry.Enabled, "reportwatch", version, nil)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}

	catalog := model.NewCatalog(cfg.Sources)
	batch := worker.NewBatchRunner(p, cfg.Concurrency.Sources, logger)

	server, err := web.NewServer(cfg.Server.Addr, catalog, batch, logger)
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}

	var sched *scheduler.Scheduler
	if !noScheduler {
		sched, err = scheduler.New(p, cfg.Schedule.Interval, cfg.Schedule.RunOnStart, logger)
		if err != nil {
			return err
		}
		sched.Register(catalog.All()...)
		sched.Start()
	}

	fmt.Fprintf(os.Stderr, "reportwatch serving on http://%s (%d sources)\n", cfg.Server.Addr, len(catalog.All()))

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Warn("scheduler stop", zap.Error(err))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
