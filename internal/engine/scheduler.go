package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/float-tracker/internal/metrics"
)

// RateRefresher updates the exchange rate.
type RateRefresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler drives reconciliation cycles and exchange-rate refreshes.
// Cycles never overlap: a tick that fires while a cycle is still running
// is skipped.
type Scheduler struct {
	cron      *cron.Cron
	engine    *Engine
	refresher RateRefresher
	log       *slog.Logger

	cycleJob     cron.Job
	cycleEntryID cron.EntryID
	rateEntryID  cron.EntryID
	wg           sync.WaitGroup
}

// NewScheduler creates a Scheduler running a cycle every pollInterval and,
// when refresher is non-nil, a rate refresh every refreshInterval.
func NewScheduler(
	eng *Engine,
	refresher RateRefresher,
	pollInterval time.Duration,
	refreshInterval time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	if pollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", pollInterval)
	}

	cl := cronLogger{log: log}
	s := &Scheduler{
		cron:      cron.New(cron.WithLogger(cl)),
		engine:    eng,
		refresher: refresher,
		log:       log,
	}

	s.cycleJob = cron.NewChain(cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(s.runCycle))

	id, err := s.cron.AddJob("@every "+pollInterval.String(), s.cycleJob)
	if err != nil {
		return nil, fmt.Errorf("scheduling cycle: %w", err)
	}
	s.cycleEntryID = id

	if refresher != nil && refreshInterval > 0 {
		id, err := s.cron.AddFunc("@every "+refreshInterval.String(), s.runRateRefresh)
		if err != nil {
			return nil, fmt.Errorf("scheduling rate refresh: %w", err)
		}
		s.rateEntryID = id
	}

	return s, nil
}

// Start runs the first cycle immediately and then begins the schedule.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cycleJob.Run()
	}()
	s.cron.Start()
}

// Stop halts the schedule. The returned context is done once any running
// cycle has finished.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	cronDone := s.cron.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		cancel()
	}()
	return ctx
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// SyncNextRunTimestamps publishes the next cycle time as a metric.
func (s *Scheduler) SyncNextRunTimestamps() {
	e := s.cron.Entry(s.cycleEntryID)
	if !e.Next.IsZero() {
		metrics.SchedulerNextCycleTimestamp.Set(float64(e.Next.Unix()))
	}
}

func (s *Scheduler) runCycle() {
	ctx := context.Background()
	s.log.Info("cycle starting")

	outcomes := s.engine.RunCycle(ctx)

	skipped := 0
	for i := range outcomes {
		if outcomes[i].Status == StatusSkipped {
			skipped++
		}
	}
	s.log.Info("cycle complete", "targets", len(outcomes), "skipped", skipped)
	s.SyncNextRunTimestamps()
}

func (s *Scheduler) runRateRefresh() {
	ctx := context.Background()
	if err := s.refresher.Refresh(ctx); err != nil {
		s.log.Warn("scheduled rate refresh failed", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
