// Package scheduler runs snapshot saves on a cron schedule, in addition
// to the engine's write-counter autosave.
package scheduler

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler owns the cron runner for timed snapshot jobs.
type Scheduler struct {
	cron *cron.Cron
}

// New validates the cron spec and registers the save job. Standard
// five-field specs and descriptors like "@every 5m" are accepted.
func New(spec string, save func() error) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %v", spec, err)
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := save(); err != nil {
			log.Printf("scheduled snapshot failed: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("register snapshot job: %v", err)
	}
	return &Scheduler{cron: c}, nil
}

// Start begins running jobs in their own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the runner, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
