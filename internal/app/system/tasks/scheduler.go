// internal/app/system/tasks/scheduler.go
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run; zero means Interval.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler runs each registered job on wall-clock boundaries of its
// interval (an hourly job fires at the top of every hour). A failing or
// panicking run is logged and the job waits for its next boundary.
type Scheduler struct {
	log    *zap.Logger
	jobs   []Job
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		log:    logger,
		stopCh: make(chan struct{}),
		now:    time.Now,
		after:  time.After,
	}
}

// Register adds a job. It must be called before Start.
func (s *Scheduler) Register(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		panic(fmt.Sprintf("tasks: Register(%q) after Start", j.Name))
	}
	s.jobs = append(s.jobs, j)
}

// Jobs returns the registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name
	}
	return names
}

// Start launches one goroutine per job. Calling it twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(j)
		s.log.Info("scheduled job started",
			zap.String("job", j.Name),
			zap.Duration("interval", j.Interval),
			zap.Time("next_run", nextRun(s.now(), j.Interval)))
	}
}

// Stop signals every job loop to exit and waits for in-flight runs, or
// until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopCh)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop(j Job) {
	defer s.wg.Done()
	for {
		wait := nextRun(s.now(), j.Interval).Sub(s.now())
		select {
		case <-s.stopCh:
			return
		case <-s.after(wait):
			s.RunOnce(j)
		}
	}
}

// RunOnce executes j a single time with its timeout, recovering panics.
// Errors are logged, never returned.
func (s *Scheduler) RunOnce(j Job) {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = j.Interval
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled job panicked",
				zap.String("job", j.Name),
				zap.Any("panic", r))
		}
	}()

	if err := j.Run(ctx); err != nil {
		s.log.Error("scheduled job failed",
			zap.String("job", j.Name),
			zap.Duration("took", s.now().Sub(start)),
			zap.Error(err))
		return
	}
	s.log.Debug("scheduled job finished",
		zap.String("job", j.Name),
		zap.Duration("took", s.now().Sub(start)))
}

// nextRun returns the first interval boundary strictly after now.
func nextRun(now time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		return now
	}
	return now.Truncate(interval).Add(interval)
}
