// Package scheduler runs the catalog's background maintenance on cron: a
// periodic expiration sweep plus one-shot delayed runs of the first sweep
// and the bootstrap sync check after startup.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"jobmate/catalog-service/internal/catalog"
)

// DefaultSweepSpec runs the sweeper once a day.
const DefaultSweepSpec = "@every 24h"

// Sweeper deactivates expired records.
type Sweeper interface {
	Run(ctx context.Context) (catalog.SweepReport, error)
}

// Bootstrapper pushes the cache to an empty remote store.
type Bootstrapper interface {
	Bootstrap(ctx context.Context) (catalog.SyncReport, error)
}

// Options controls timing. Zero delays run the one-shot jobs as soon as
// the scheduler starts; a negative delay disables that job.
type Options struct {
	SweepSpec      string
	SweepDelay     time.Duration
	BootstrapDelay time.Duration
}

// Scheduler wraps robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	boot    Bootstrapper
	opts    Options
	logger  *slog.Logger
}

// New builds a Scheduler. boot may be nil when no bootstrap is wanted.
func New(sweeper Sweeper, boot Bootstrapper, opts Options, logger *slog.Logger) *Scheduler {
	if opts.SweepSpec == "" {
		opts.SweepSpec = DefaultSweepSpec
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper: sweeper,
		boot:    boot,
		opts:    opts,
		logger:  logger,
	}
}

// Start registers the jobs and starts the cron loop. Jobs run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	sweep := cron.FuncJob(func() { s.runSweep(ctx) })

	if _, err := s.cron.AddJob(s.opts.SweepSpec, sweep); err != nil {
		return fmt.Errorf("cron.AddJob %q: %w", s.opts.SweepSpec, err)
	}

	now := time.Now()
	if s.opts.SweepDelay >= 0 {
		s.cron.Schedule(after(now.Add(s.opts.SweepDelay)), sweep)
	}
	if s.boot != nil && s.opts.BootstrapDelay >= 0 {
		s.cron.Schedule(after(now.Add(s.opts.BootstrapDelay)), cron.FuncJob(func() { s.runBootstrap(ctx) }))
	}

	s.cron.Start()
	s.logger.Info("cron started", "sweep", s.opts.SweepSpec, "sweepDelay", s.opts.SweepDelay, "bootstrapDelay", s.opts.BootstrapDelay)
	return nil
}

// Stop halts the cron loop and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("cron stopped")
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if _, err := s.sweeper.Run(ctx); err != nil {
		s.logger.Error("sweep failed", "err", err)
	}
}

func (s *Scheduler) runBootstrap(ctx context.Context) {
	if _, err := s.boot.Bootstrap(ctx); err != nil {
		s.logger.Warn("bootstrap skipped", "err", err)
	}
}

// once fires a single time, at `at` or immediately if that has passed.
type once struct {
	at    time.Time
	fired bool
}

func after(at time.Time) *once { return &once{at: at} }

func (o *once) Next(t time.Time) time.Time {
	if o.fired {
		return time.Time{}
	}
	o.fired = true
	if t.Before(o.at) {
		return o.at
	}
	return t
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, kv ...any) { c.l.Debug(msg, kv...) }

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error(msg, append(kv, "err", err)...)
}
