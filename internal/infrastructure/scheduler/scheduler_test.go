package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/finance/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type funcJob struct {
	name string
	runs atomic.Int32
	fn   func(ctx context.Context) error
}

func (j *funcJob) Name() string { return j.name }

func (j *funcJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.fn == nil {
		return nil
	}
	return j.fn(ctx)
}

func newScheduler(t *testing.T, cfg config.SchedulerConfig) *Scheduler {
	t.Helper()
	s, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func jobInfo(t *testing.T, s *Scheduler, name string) JobInfo {
	t.Helper()
	for _, info := range s.Jobs() {
		if info.Name == name {
			return info
		}
	}
	t.Fatalf("job %s not registered", name)
	return JobInfo{}
}

func TestNew_Timezone(t *testing.T) {
	s, err := New(config.SchedulerConfig{Timezone: "America/Sao_Paulo"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "America/Sao_Paulo", s.location.String())

	_, err = New(config.SchedulerConfig{Timezone: "Mars/Olympus"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestScheduler_AddJob(t *testing.T) {
	s := newScheduler(t, config.SchedulerConfig{})

	require.NoError(t, s.AddJob("0 6 * * *", &funcJob{name: "finance-daily"}))
	assert.ErrorIs(t, s.AddJob("0 7 * * *", &funcJob{name: "finance-daily"}), ErrJobAlreadyRegistered)
	assert.ErrorIs(t, s.AddJob("not a schedule", &funcJob{name: "other"}), ErrInvalidConfig)

	info := jobInfo(t, s, "finance-daily")
	assert.Equal(t, JobStatusPending, info.Status)
	assert.Equal(t, "0 6 * * *", info.Schedule)
}

func TestScheduler_RunNow(t *testing.T) {
	s := newScheduler(t, config.SchedulerConfig{})
	ok := &funcJob{name: "ok"}
	failing := &funcJob{name: "failing", fn: func(context.Context) error { return errors.New("tenant listing failed") }}
	panicking := &funcJob{name: "panicking", fn: func(context.Context) error { panic("boom") }}
	require.NoError(t, s.AddJob("@daily", ok))
	require.NoError(t, s.AddJob("@daily", failing))
	require.NoError(t, s.AddJob("@daily", panicking))

	require.NoError(t, s.RunNow(context.Background(), "ok"))
	info := jobInfo(t, s, "ok")
	assert.Equal(t, JobStatusSuccess, info.Status)
	assert.NotNil(t, info.CompletedAt)

	require.Error(t, s.RunNow(context.Background(), "failing"))
	info = jobInfo(t, s, "failing")
	assert.Equal(t, JobStatusFailed, info.Status)
	assert.Equal(t, "tenant listing failed", info.Error)

	err := s.RunNow(context.Background(), "panicking")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrJobNotFound)
}

func TestScheduler_JobTimeout(t *testing.T) {
	s := newScheduler(t, config.SchedulerConfig{JobTimeout: 20 * time.Millisecond})
	slow := &funcJob{name: "slow", fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	require.NoError(t, s.AddJob("@daily", slow))

	err := s.RunNow(context.Background(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScheduler_FiresOnSchedule(t *testing.T) {
	s := newScheduler(t, config.SchedulerConfig{})
	job := &funcJob{name: "tick"}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	assert.NotNil(t, jobInfo(t, s, "tick").NextRunAt)

	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	s := newScheduler(t, config.SchedulerConfig{})
	release := make(chan struct{})
	job := &funcJob{name: "long", fn: func(ctx context.Context) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}}
	require.NoError(t, s.AddJob("@every 1s", job))
	s.Start()

	time.Sleep(2500 * time.Millisecond)
	close(release)

	assert.Equal(t, int32(1), job.runs.Load())
}

func TestScheduler_StopCancelsRunningJobs(t *testing.T) {
	s, err := New(config.SchedulerConfig{}, nil)
	require.NoError(t, err)

	started := make(chan struct{})
	job := &funcJob{name: "blocking", fn: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}
	require.NoError(t, s.AddJob("@every 1s", job))
	s.Start()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, JobStatusFailed, jobInfo(t, s, "blocking").Status)
}
