package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"project_cycle_service/internal/infra/lock"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingRunner struct {
	calls    atomic.Int32
	err      error
	deadline atomic.Bool
}

func (r *countingRunner) CheckAndAdvanceCycles(ctx context.Context) (int, error) {
	r.calls.Add(1)
	_, ok := ctx.Deadline()
	r.deadline.Store(ok)
	return 2, r.err
}

type busyLocker struct{}

func (busyLocker) Run(func() error) error { return lock.ErrLocked }

func TestRunOnce_CallsRunnerWithDeadline(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	runner := &countingRunner{}
	s := NewCycleScheduler(runner, nil, logger, "@hourly", time.Minute)

	s.RunOnce()

	assert.EqualValues(t, 1, runner.calls.Load())
	assert.True(t, runner.deadline.Load())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, 2, hook.LastEntry().Data["advanced"])
}

func TestRunOnce_LogsRunnerError(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	runner := &countingRunner{err: errors.New("db down")}
	s := NewCycleScheduler(runner, nil, logger, "@hourly", time.Minute)

	s.RunOnce()

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, runner.err, hook.LastEntry().Data[logrus.ErrorKey])
}

func TestRunOnce_SkipsWhenLocked(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	runner := &countingRunner{}
	s := NewCycleScheduler(runner, busyLocker{}, logger, "@hourly", time.Minute)

	s.RunOnce()

	assert.Zero(t, runner.calls.Load())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestRunOnce_UsesFileLock(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	runner := &countingRunner{}
	s := NewCycleScheduler(runner, lock.NewFileLock(t.TempDir()+"/cycles.lock"), logger, "@hourly", time.Minute)

	s.RunOnce()
	s.RunOnce()

	assert.EqualValues(t, 2, runner.calls.Load())
}

func TestStart_InvalidSpec(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	s := NewCycleScheduler(&countingRunner{}, nil, logger, "not a cron spec", time.Minute)

	err := s.Start()
	assert.Error(t, err)
}

func TestStartStop_RunsJobAndLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger, _ := logtest.NewNullLogger()
	runner := &countingRunner{}
	s := NewCycleScheduler(runner, nil, logger, "@every 1s", time.Minute)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return runner.calls.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
	s.Stop()
}

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	done    atomic.Bool
}

func (r *blockingRunner) CheckAndAdvanceCycles(ctx context.Context) (int, error) {
	close(r.started)
	<-r.release
	r.done.Store(true)
	return 1, nil
}

func TestStop_WaitsForTriggeredRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger, _ := logtest.NewNullLogger()
	runner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	s := NewCycleScheduler(runner, nil, logger, "@hourly", time.Minute)
	require.NoError(t, s.Start())

	s.TriggerNow()
	<-runner.started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a triggered run was still in progress")
	case <-time.After(100 * time.Millisecond):
	}

	close(runner.release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the triggered run finished")
	}
	assert.True(t, runner.done.Load())
}
