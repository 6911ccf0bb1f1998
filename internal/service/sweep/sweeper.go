package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sitetrack/internal/service/project"
	"sitetrack/pkg/metrics"
)

// Recomputer is the slice of the project service the sweep drives.
type Recomputer interface {
	OngoingIDs(ctx context.Context) ([]int64, error)
	Recompute(ctx context.Context, id int64, trigger string) (project.Outcome, error)
}

// Report summarises one sweep.
type Report struct {
	Saved     int
	Unchanged int
	Failed    int
	Duration  time.Duration
}

// Sweeper recomputes every ongoing project once a day, through the same
// path as an on-demand read.
type Sweeper struct {
	projects   Recomputer
	hour       int
	runOnStart bool
	now        func() time.Time
	logger     *zap.Logger
}

func NewSweeper(projects Recomputer, hour int, runOnStart bool, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		projects:   projects,
		hour:       hour,
		runOnStart: runOnStart,
		now:        time.Now,
		logger:     logger,
	}
}

// RunOnce sweeps all ongoing projects. A failing project is logged and
// counted; it never stops the sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (Report, error) {
	start := s.now()
	s.logger.Info("Running progress sweep...")

	ids, err := s.projects.OngoingIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list ongoing projects", zap.Error(err))
		return Report{}, err
	}

	var report Report
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		outcome, err := s.projects.Recompute(ctx, id, project.TriggerSweep)
		if err != nil {
			report.Failed++
			s.logger.Error("Failed to recompute project",
				zap.Int64("project_id", id),
				zap.Error(err),
			)
			continue
		}
		if outcome == project.OutcomeChanged {
			report.Saved++
		} else {
			report.Unchanged++
		}
	}

	report.Duration = s.now().Sub(start)
	metrics.RecordSweep(report.Duration, report.Saved, report.Unchanged, report.Failed)
	s.logger.Info("Progress sweep completed",
		zap.Int("projects", len(ids)),
		zap.Int("saved", report.Saved),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
	return report, ctx.Err()
}

// Start 阻塞运行，每天 hour 点执行一次，直到 ctx 取消
func (s *Sweeper) Start(ctx context.Context) {
	if s.runOnStart {
		s.RunOnce(ctx)
	}

	for {
		next := nextRun(s.now(), s.hour)
		s.logger.Info("Next progress sweep scheduled", zap.Time("at", next))

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Progress sweep stopped")
			return
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
}

// nextRun returns the first hour:00 in now's location strictly after now.
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
