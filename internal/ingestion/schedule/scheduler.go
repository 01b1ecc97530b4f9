// Package schedule triggers ingestion runs on a cron timetable.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/tenpadel-backend/internal/domain/ingest"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/pipeline"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

type Runner interface {
	Run(ctx context.Context, p pipeline.Params, trigger string) (pipeline.RunSummary, error)
}

type Config struct {
	Spec     string
	Location *time.Location
	// Timeout bounds one scheduled run; zero means no bound.
	Timeout time.Duration
	Params  pipeline.Params
}

type Scheduler struct {
	cfg    Config
	runner Runner
	log    *logger.Logger
	cron   *cron.Cron

	mu  sync.Mutex
	ctx context.Context
}

func New(cfg Config, runner Runner, log *logger.Logger) (*Scheduler, error) {
	if strings.TrimSpace(cfg.Spec) == "" {
		return nil, fmt.Errorf("empty schedule")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	s := &Scheduler{
		cfg:    cfg,
		runner: runner,
		log:    log.With("component", "IngestScheduler"),
		ctx:    context.Background(),
	}
	clog := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	if _, err := s.cron.AddFunc(cfg.Spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Spec, err)
	}
	return s, nil
}

// Start runs the timetable until Stop. Runs inherit ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
	s.log.Info("ingest schedule started", "spec", s.cfg.Spec, "location", s.cfg.Location.String(), "next", s.Next())
}

// Stop halts the timetable and waits for an in-flight run, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduled run still in flight at shutdown")
	}
}

func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	sum, err := s.runner.Run(ctx, s.cfg.Params, ingest.TriggerSchedule)
	switch {
	case pipeline.IsBusy(err):
		s.log.Info("scheduled run skipped, another run in progress")
	case err != nil:
		s.log.Warn("scheduled run failed", "status", sum.Status, "error", err)
	default:
		s.log.Info("scheduled run done", "run_id", sum.RunID, "status", sum.Status)
	}
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
