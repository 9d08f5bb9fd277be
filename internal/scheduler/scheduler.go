// Package scheduler drives the nightly refresh via cron expressions.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is the function signature for scheduled jobs
type JobFunc func(ctx context.Context)

// Scheduler manages named cron jobs. A job whose previous run is still in
// progress is skipped, not stacked: a refresh can outlast its interval and
// must never run twice concurrently.
type Scheduler struct {
	cron *cron.Cron
	jobs map[string]*job
	mu   sync.RWMutex
}

type job struct {
	entryID cron.EntryID
	running atomic.Bool
}

// New creates a new scheduler using standard 5-field cron expressions
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
		))),
		jobs: make(map[string]*job),
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started")
}

// Stop gracefully stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// AddJob schedules a named job, replacing any existing job with that name
func (s *Scheduler) AddJob(name, schedule string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.jobs[name]; exists {
		s.cron.Remove(existing.entryID)
		delete(s.jobs, name)
	}

	j := &job{}
	entryID, err := s.cron.AddFunc(schedule, func() {
		if !j.running.CompareAndSwap(false, true) {
			slog.Warn("previous run still in progress, skipping", "job", name)
			return
		}
		defer j.running.Store(false)

		fn(context.Background())
	})
	if err != nil {
		return err
	}

	j.entryID = entryID
	s.jobs[name] = j
	slog.Debug("added scheduled job", "job", name, "schedule", schedule)

	return nil
}

// RemoveJob removes a scheduled job by name
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, exists := s.jobs[name]; exists {
		s.cron.Remove(j.entryID)
		delete(s.jobs, name)
		slog.Debug("removed scheduled job", "job", name)
	}
}

// HasJob checks if a job with the given name is scheduled
func (s *Scheduler) HasJob(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.jobs[name]
	return exists
}

// JobCount returns the number of scheduled jobs
func (s *Scheduler) JobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.jobs)
}

// JobInfo describes a scheduled job
type JobInfo struct {
	Name    string    `json:"name"`
	NextRun time.Time `json:"next_run"`
	Running bool      `json:"running"`
}

// ListJobs returns information about all scheduled jobs
func (s *Scheduler) ListJobs() map[string]JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]JobInfo, len(s.jobs))
	for name, j := range s.jobs {
		entry := s.cron.Entry(j.entryID)
		result[name] = JobInfo{
			Name:    name,
			NextRun: entry.Next,
			Running: j.running.Load(),
		}
	}
	return result
}
