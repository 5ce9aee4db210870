// Package scheduler runs the periodic settlement jobs on a cron engine.
package scheduler

import (
	"auctionhouse/backend/internal/auctionerrors"
	"auctionhouse/backend/internal/config"
	"auctionhouse/backend/internal/metrics"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Job is one recurring task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// JobStatus is the operational view of a job.
type JobStatus struct {
	Index     int        `json:"index"`
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	Running   bool       `json:"running"`
	Busy      bool       `json:"busy"`
	LastRun   *time.Time `json:"lastRun,omitempty"`
	LastError string     `json:"lastError,omitempty"`
	Runs      int64      `json:"runs"`
}

type job struct {
	Job
	schedule string
	busy     atomic.Bool

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
	runs    int64
}

// Scheduler owns the cron engine and the registered jobs.
// A job never overlaps itself: a tick that finds the previous one still running is skipped.
type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	jobs     []*job
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	stopWait time.Duration
}

func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.PrintfLogger(log.StandardLogger())),
		)),
		stopWait: config.StopWaitTimeout,
	}
}

// Initialize registers the jobs. Calling it again after a successful call does nothing.
func (s *Scheduler) Initialize(jobs ...Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.jobs) > 0 {
		log.Debug("scheduler already initialized")
		return nil
	}

	registered := make([]*job, 0, len(jobs))
	for _, j := range jobs {
		if j.Run == nil || j.Interval <= 0 {
			return fmt.Errorf("scheduler: job %q needs a function and a positive interval", j.Name)
		}
		registered = append(registered, &job{Job: j, schedule: "@every " + j.Interval.String()})
	}

	for _, j := range registered {
		j := j
		if _, err := s.cron.AddFunc(j.schedule, func() { s.tick(j) }); err != nil {
			return fmt.Errorf("scheduler: job %q: %w", j.Name, err)
		}
	}
	s.jobs = registered

	log.WithField("jobs", len(registered)).Info("scheduler initialized")
	return nil
}

// Start begins firing the jobs on their schedules.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.jobs) == 0 {
		return auctionerrors.ErrSchedulerNotInitialized
	}
	if s.running {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron.Start()
	s.running = true
	log.Info("scheduler started")
	return nil
}

// Stop halts the schedules and waits for in-flight runs, up to the stop timeout.
// Runs still going after that see their context cancelled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.cron.Stop()
	s.mu.Unlock()

	select {
	case <-done.Done():
	case <-time.After(s.stopWait):
		log.Warn("scheduler stop timed out waiting for running jobs")
	}
	cancel()
	log.Info("scheduler stopped")
}

// Restart stops and starts the scheduler.
func (s *Scheduler) Restart() error {
	s.Stop()
	return s.Start()
}

// Running reports whether the schedules are active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status lists every job in registration order.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	running := s.running
	jobs := s.jobs
	s.mu.Unlock()

	out := make([]JobStatus, 0, len(jobs))
	for i, j := range jobs {
		st := JobStatus{
			Index:    i,
			Name:     j.Name,
			Schedule: j.schedule,
			Running:  running,
			Busy:     j.busy.Load(),
		}
		j.mu.Lock()
		if !j.lastRun.IsZero() {
			last := j.lastRun
			st.LastRun = &last
		}
		if j.lastErr != nil {
			st.LastError = j.lastErr.Error()
		}
		st.Runs = j.runs
		j.mu.Unlock()
		out = append(out, st)
	}
	return out
}

// Trigger runs job index now, on the caller's goroutine.
// It returns ErrJobBusy if that job is already running.
func (s *Scheduler) Trigger(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.jobs) {
		s.mu.Unlock()
		return fmt.Errorf("job %d: %w", index, auctionerrors.ErrJobNotFound)
	}
	j := s.jobs[index]
	s.mu.Unlock()

	return s.run(ctx, j)
}

func (s *Scheduler) tick(j *job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	_ = s.run(ctx, j)
}

func (s *Scheduler) run(ctx context.Context, j *job) error {
	entry := log.WithField("job", j.Name)
	if !j.busy.CompareAndSwap(false, true) {
		entry.Warn("previous run still in progress, skipping")
		metrics.ObserveJobRun(j.Name, metrics.StatusSkipped)
		return fmt.Errorf("job %s: %w", j.Name, auctionerrors.ErrJobBusy)
	}
	defer j.busy.Store(false)

	started := time.Now()
	err := j.Run(ctx)

	j.mu.Lock()
	j.lastRun = started
	j.lastErr = err
	j.runs++
	j.mu.Unlock()

	if err != nil {
		entry.WithError(err).Error("job failed")
		metrics.ObserveJobRun(j.Name, metrics.StatusFailure)
		return err
	}
	entry.WithField("duration", time.Since(started).String()).Debug("job finished")
	metrics.ObserveJobRun(j.Name, metrics.StatusSuccess)
	return nil
}
