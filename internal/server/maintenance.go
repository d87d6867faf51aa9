package server

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/fbecker/strategraph/pkg/errors"
)

// maintenance owns the cron schedule for periodic cleanup.
type maintenance struct {
	sched *cron.Cron
}

// sweeper is implemented by caches that can remove expired entries.
type sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// startMaintenance schedules runMaintenance per the configured cron
// expression and starts the scheduler.
func startMaintenance(s *Server) (*maintenance, error) {
	c := cron.New()
	_, err := c.AddFunc(s.cfg.CleanupSchedule, func() {
		s.runMaintenance(context.Background())
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err,
			"invalid cleanup schedule %q", s.cfg.CleanupSchedule)
	}
	c.Start()
	s.logger.Info("Maintenance scheduled", "schedule", s.cfg.CleanupSchedule)
	return &maintenance{sched: c}, nil
}

func (m *maintenance) stop() {
	m.sched.Stop()
}

// runMaintenance removes stale unnamed drafts and sweeps expired cache
// entries. Failures are logged, never fatal.
func (s *Server) runMaintenance(ctx context.Context) {
	if s.cfg.DraftRetention > 0 {
		if err := s.cfg.Store.Cleanup(ctx, s.cfg.DraftRetention); err != nil {
			s.logger.Error("Draft cleanup failed", "error", err)
		}
	}

	if sw, ok := s.cfg.Artifacts.(sweeper); ok {
		removed, err := sw.Sweep(ctx)
		if err != nil {
			s.logger.Error("Cache sweep failed", "error", err)
			return
		}
		if removed > 0 {
			s.logger.Info("Swept artifact cache", "removed", removed)
		}
	}
}
