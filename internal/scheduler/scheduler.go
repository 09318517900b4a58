// Package scheduler runs the recurring pipeline jobs on fixed
// intervals with manual trigger and pause controls.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrUnknownJob is returned for trigger or pause calls on
	// unregistered job names.
	ErrUnknownJob = errors.New("unknown job")
	// ErrJobBusy is returned when a trigger races an in-flight run.
	ErrJobBusy = errors.New("job already running")
)

// Job is a named recurring task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Status is a point-in-time snapshot of one job.
type Status struct {
	Name         string        `json:"name"`
	Interval     time.Duration `json:"interval"`
	Paused       bool          `json:"paused"`
	Running      bool          `json:"running"`
	Runs         int64         `json:"runs"`
	LastStarted  time.Time     `json:"last_started"`
	LastDuration time.Duration `json:"last_duration"`
}

type job struct {
	Job
	paused       bool
	running      bool
	runs         int64
	lastStarted  time.Time
	lastDuration time.Duration
}

// Scheduler owns one goroutine per job. A tick that lands while the
// previous run is still going is skipped rather than queued, so a slow
// upstream can never pile up overlapping passes.
type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*job
	logger *zap.Logger

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool
}

// New builds a Scheduler over a fixed job set.
func New(jobs []Job, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		jobs:   make(map[string]*job, len(jobs)),
		logger: logger.Named("scheduler"),
	}
	for _, j := range jobs {
		if j.Name == "" || j.Run == nil {
			return nil, fmt.Errorf("job needs a name and a run func")
		}
		if j.Interval <= 0 {
			return nil, fmt.Errorf("job %s needs a positive interval", j.Name)
		}
		if _, dup := s.jobs[j.Name]; dup {
			return nil, fmt.Errorf("duplicate job %s", j.Name)
		}
		s.jobs[j.Name] = &job{Job: j}
	}
	return s, nil
}

// Start launches the tickers. It is not an error to call Start once and
// Shutdown later from another goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	for name := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, name)
	}
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Shutdown stops the tickers and waits for in-flight runs to finish.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, name string) {
	defer s.wg.Done()

	s.mu.Lock()
	interval := s.jobs[name].Interval
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.runOnce(ctx, name); err != nil {
				s.logger.Debug("tick skipped", zap.String("job", name), zap.Error(err))
			}
		}
	}
}

// runOnce claims the job and runs it, or reports why it could not.
func (s *Scheduler) runOnce(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	if j.paused {
		s.mu.Unlock()
		return fmt.Errorf("job %s is paused", name)
	}
	if j.running {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobBusy, name)
	}
	j.running = true
	j.runs++
	j.lastStarted = time.Now()
	run := j.Run
	s.mu.Unlock()

	start := time.Now()
	s.logger.Info("job started", zap.String("job", name))
	run(ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	j.running = false
	j.lastDuration = elapsed
	s.mu.Unlock()

	s.logger.Info("job finished", zap.String("job", name), zap.Duration("elapsed", elapsed))
	return nil
}

// Trigger runs a job immediately, outside its schedule. Paused jobs can
// still be triggered by hand; only an in-flight run blocks it.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	if j.running {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobBusy, name)
	}
	j.running = true
	j.runs++
	j.lastStarted = time.Now()
	run := j.Run
	s.mu.Unlock()

	start := time.Now()
	run(ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	j.running = false
	j.lastDuration = elapsed
	s.mu.Unlock()
	return nil
}

// Pause stops scheduled runs of a job until Resume.
func (s *Scheduler) Pause(name string) error {
	return s.setPaused(name, true)
}

// Resume re-enables scheduled runs of a paused job.
func (s *Scheduler) Resume(name string) error {
	return s.setPaused(name, false)
}

func (s *Scheduler) setPaused(name string, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	j.paused = paused
	return nil
}

// Jobs returns a status snapshot sorted by job name.
func (s *Scheduler) Jobs() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, Status{
			Name:         j.Name,
			Interval:     j.Interval,
			Paused:       j.paused,
			Running:      j.running,
			Runs:         j.runs,
			LastStarted:  j.lastStarted,
			LastDuration: j.lastDuration,
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}
