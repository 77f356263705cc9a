// Package watcher runs the hardware event producers: periodic thermal
// PID control loops and switch edge polling. Watchers submit trigger
// commands to the bus exactly like a protocol client and never wait for
// replies.
package watcher

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/armazcape/armazd/internal/bus"
)

// Bus is the subset of the dispatcher watchers use to submit triggers.
type Bus interface {
	Submit(processorID string, c bus.Command) error
}

// Scheduler wraps gocron for managing the watcher loops. Watchers are
// scheduled independently of the dispatcher's consumers and stopped by
// their owning lifecycle, not the bus.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// AddPeriodic schedules task at a fixed interval.
func (s *Scheduler) AddPeriodic(name string, interval time.Duration, task func()) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// Start begins running the scheduled watchers.
func (s *Scheduler) Start() {
	slog.Info("Starting watcher scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running ticks to finish.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping watcher scheduler")
	return s.scheduler.Shutdown()
}
