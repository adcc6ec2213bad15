package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/finance/internal/infrastructure/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	ErrInvalidConfig        = errors.New("scheduler: invalid configuration")
	ErrJobNotFound          = errors.New("scheduler: unknown job")
	ErrJobAlreadyRegistered = errors.New("scheduler: duplicate job name")
)

// JobStatus represents the outcome of the last run of a job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is a unit of background work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobInfo describes a registered job and its last run
type JobInfo struct {
	Name        string     `json:"name"`
	Schedule    string     `json:"schedule"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	NextRunAt   *time.Time `json:"next_run_at,omitempty"`
}

type entry struct {
	job     Job
	id      cron.EntryID
	info    JobInfo
	running sync.Mutex
}

// Scheduler runs jobs on cron schedules in a fixed time zone. A job never
// overlaps with itself; a tick that arrives while it is still running is
// skipped.
type Scheduler struct {
	cron       *cron.Cron
	location   *time.Location
	jobTimeout time.Duration
	logger     *zap.Logger

	mu      sync.RWMutex
	entries map[string]*entry

	baseCtx context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler from configuration
func New(cfg config.SchedulerConfig, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	location := time.UTC
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, cfg.Timezone, err)
		}
		location = loc
	}

	logger = logger.Named("scheduler")
	cronLogger := zapCronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		location:   location,
		jobTimeout: cfg.JobTimeout,
		logger:     logger,
		entries:    make(map[string]*entry),
		baseCtx:    ctx,
		cancel:     cancel,
	}, nil
}

// AddJob registers a job under a standard five-field cron expression or a
// descriptor such as "@daily".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[job.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyRegistered, job.Name())
	}

	e := &entry{
		job:  job,
		info: JobInfo{Name: job.Name(), Schedule: schedule, Status: JobStatusPending},
	}
	id, err := s.cron.AddFunc(schedule, func() {
		if !e.running.TryLock() {
			s.logger.Warn("previous run still in progress, skipping tick", zap.String("job", job.Name()))
			return
		}
		defer e.running.Unlock()
		_ = s.execute(s.baseCtx, e)
	})
	if err != nil {
		return fmt.Errorf("%w: schedule %q: %v", ErrInvalidConfig, schedule, err)
	}
	e.id = id
	s.entries[job.Name()] = e

	s.logger.Info("job registered",
		zap.String("job", job.Name()),
		zap.String("schedule", schedule),
		zap.String("timezone", s.location.String()))
	return nil
}

// RunNow executes a registered job immediately and waits for it. It blocks
// while a scheduled run of the same job is in progress.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	e.running.Lock()
	defer e.running.Unlock()
	return s.execute(ctx, e)
}

// Start begins firing scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.Jobs())))
}

// Stop cancels running jobs and waits for them to return or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs returns a snapshot of every registered job
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]JobInfo, 0, len(s.entries))
	for _, e := range s.entries {
		info := e.info
		if next := s.cron.Entry(e.id).Next; !next.IsZero() {
			info.NextRunAt = &next
		}
		jobs = append(jobs, info)
	}
	return jobs
}

func (s *Scheduler) execute(ctx context.Context, e *entry) error {
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	started := time.Now()
	s.setInfo(e, func(info *JobInfo) {
		info.Status = JobStatusRunning
		info.StartedAt = &started
		info.CompletedAt = nil
		info.Error = ""
	})
	s.logger.Info("job started", zap.String("job", e.job.Name()))

	err := runSafely(ctx, e.job)

	completed := time.Now()
	s.setInfo(e, func(info *JobInfo) {
		info.CompletedAt = &completed
		if err != nil {
			info.Status = JobStatusFailed
			info.Error = err.Error()
			return
		}
		info.Status = JobStatusSuccess
	})

	if err != nil {
		s.logger.Error("job failed",
			zap.String("job", e.job.Name()),
			zap.Duration("duration", completed.Sub(started)),
			zap.Error(err))
		return err
	}
	s.logger.Info("job completed",
		zap.String("job", e.job.Name()),
		zap.Duration("duration", completed.Sub(started)))
	return nil
}

func (s *Scheduler) setInfo(e *entry, update func(*JobInfo)) {
	s.mu.Lock()
	update(&e.info)
	s.mu.Unlock()
}

func runSafely(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	return job.Run(ctx)
}

// zapCronLogger adapts zap to cron.Logger
type zapCronLogger struct {
	logger *zap.Logger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
