package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/metrics"
)

// Evictor drops idle sessions and reports what is left.
type Evictor interface {
	EvictIdle() int
	Len() int
}

// Scheduler periodically sweeps idle lookup sessions. It never refreshes
// weather data.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sessions  Evictor
	metrics   *metrics.Recorder
	interval  time.Duration
}

// New creates a new Scheduler.
func New(sessions Evictor, interval time.Duration, rec *metrics.Recorder) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		sessions:  sessions,
		metrics:   rec,
		interval:  interval,
	}
}

// Start schedules the sweep and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	_, err := s.scheduler.Every(interval).SingletonMode().Do(s.Sweep)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Sweep runs one eviction pass.
func (s *Scheduler) Sweep() {
	removed := s.sessions.EvictIdle()
	left := s.sessions.Len()
	s.metrics.SetSessions(left)
	if removed > 0 {
		logger.GetLogger().Infow("scheduler: evicted idle sessions", "removed", removed, "remaining", left)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
