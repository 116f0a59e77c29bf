package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ppiankov/reportwatch/internal/model"
	"github.com/ppiankov/reportwatch/internal/worker"
)

// Scheduler re-runs every registered source on a fixed interval.
// A source whose previous run is still in progress skips the tick.
type Scheduler struct {
	cron       *cron.Cron
	runner     worker.SourceRunner
	interval   time.Duration
	runOnStart bool
	logger     *zap.Logger

	chain  cron.Chain
	mu     sync.Mutex
	jobs   []cron.Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler; interval must be positive
func New(runner worker.SourceRunner, interval time.Duration, runOnStart bool, logger *zap.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("scheduler: nil runner")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler: interval must be positive, got %v", interval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cronLogger := cronLogger{logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cronLogger)),
		chain:      cron.NewChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		runner:     runner,
		interval:   interval,
		runOnStart: runOnStart,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Register adds one periodic job per source
func (s *Scheduler) Register(sources ...model.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, source := range sources {
		source := source
		// The same wrapped job serves ticks and the start-up run so they never overlap
		job := s.chain.Then(cron.FuncJob(func() {
			s.runOne(source)
		}))
		s.cron.Schedule(cron.Every(s.interval), job)
		s.jobs = append(s.jobs, job)
		s.logger.Info("scheduled source",
			zap.String("source", source.Name),
			zap.Duration("interval", s.interval))
	}
}

// Entries is the number of scheduled jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start begins ticking. With runOnStart every source also runs once right away.
func (s *Scheduler) Start() {
	if s.runOnStart {
		s.mu.Lock()
		jobs := append([]cron.Job(nil), s.jobs...)
		s.mu.Unlock()

		for _, job := range jobs {
			s.wg.Add(1)
			go func(job cron.Job) {
				defer s.wg.Done()
				job.Run()
			}(job)
		}
	}
	s.cron.Start()
}

// Stop prevents new runs, cancels in-flight ones and waits for them to return
// or for ctx to expire
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	cronDone := s.cron.Stop().Done()

	done := make(chan struct{})
	go func() {
		<-cronDone
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runOne(source model.Source) {
	if s.ctx.Err() != nil {
		return
	}

	result, err := s.runner.Run(s.ctx, source)
	if err != nil {
		s.logger.Error("scheduled run failed", zap.String("source", source.Name), zap.Error(err))
		return
	}
	if result != nil {
		s.logger.Info("scheduled run finished",
			zap.String("source", source.Name),
			zap.Int("reported", result.Count(model.StatusReported)),
			zap.Int("failed", result.Failures()))
	}
}

// cronLogger adapts zap to cron's logr-style logger
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
