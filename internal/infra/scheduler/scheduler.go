package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"project_cycle_service/internal/infra/lock"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CycleRunner performs one advancement pass.
type CycleRunner interface {
	CheckAndAdvanceCycles(ctx context.Context) (int, error)
}

// Locker guards a run against other processes. lock.FileLock implements it.
type Locker interface {
	Run(fn func() error) error
}

type CycleScheduler struct {
	cronEngine *cron.Cron
	runner     CycleRunner
	locker     Locker // nil runs without a host lock
	logger     *logrus.Entry
	cronSpec   string
	timeout    time.Duration
	manualRuns sync.WaitGroup // passes started by TriggerNow
}

func NewCycleScheduler(
	runner CycleRunner,
	locker Locker,
	logger logrus.FieldLogger,
	cronSpec string, // e.g., "0 * * * *" (top of every hour)
	timeout time.Duration,
) *CycleScheduler {
	entry := logger.WithField("component", "scheduler")
	cronLogger := cron.PrintfLogger(entry)
	return &CycleScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local), // Use server's local time for cron
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner:   runner,
		locker:   locker,
		logger:   entry,
		cronSpec: cronSpec,
		timeout:  timeout,
	}
}

func (s *CycleScheduler) Start() error {
	s.logger.Info("Starting cycle scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Debug("Cron job triggered for cycle advancement.")
		s.RunOnce()
	})
	if err != nil {
		return fmt.Errorf("could not add cycle advancement cron job (spec %q): %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpec).Info("Cycle scheduler started.")
	return nil
}

// RunOnce performs a single advancement pass under the configured timeout and lock.
func (s *CycleScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	var advanced int
	run := func() error {
		var err error
		advanced, err = s.runner.CheckAndAdvanceCycles(ctx)
		return err
	}

	var err error
	if s.locker != nil {
		err = s.locker.Run(run)
	} else {
		err = run()
	}

	log := s.logger.WithFields(logrus.Fields{
		"advanced": advanced,
		"duration": time.Since(started).String(),
	})
	switch {
	case errors.Is(err, lock.ErrLocked):
		log.Warn("Another cycle run holds the lock. Skipping this tick.")
	case err != nil:
		log.WithError(err).Error("Error during cycle advancement")
	default:
		log.Info("Cycle advancement finished")
	}
}

// TriggerNow starts one pass in the background. Stop waits for it.
func (s *CycleScheduler) TriggerNow() {
	s.manualRuns.Add(1)
	go func() {
		defer s.manualRuns.Done()
		s.RunOnce()
	}()
}

func (s *CycleScheduler) Stop() {
	s.logger.Info("Stopping cycle scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.manualRuns.Wait()
	s.logger.Info("Cycle scheduler gracefully stopped.")
}
