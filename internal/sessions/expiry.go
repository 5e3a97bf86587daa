package sessions

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cynqhq/cynq/internal/observability"
)

// Sweeper periodically removes idle sessions on a cron schedule.
type Sweeper struct {
	controller  *Controller
	logger      *observability.Logger
	expireAfter time.Duration
	cron        *cron.Cron
}

// NewSweeper creates a sweeper that removes sessions idle longer than
// expireAfter. A non-positive expireAfter disables sweeping.
func NewSweeper(controller *Controller, expireAfter time.Duration, logger *observability.Logger) *Sweeper {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Sweeper{
		controller:  controller,
		logger:      logger,
		expireAfter: expireAfter,
	}
}

// Start schedules sweeps using a cron spec such as "@hourly". It is a
// no-op when expiry is disabled.
func (s *Sweeper) Start(schedule string) error {
	if s.expireAfter <= 0 {
		return nil
	}
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduled sweeps and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Sweeper) sweep() {
	ctx := context.Background()
	removed, err := s.controller.ExpireIdleSessions(ctx, s.expireAfter)
	if err != nil {
		s.logger.Error(ctx, "session expiry sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info(ctx, "expired idle sessions", "count", removed)
	}
}
