package project

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sitetrack/internal/model"
	"sitetrack/internal/progress"
	"sitetrack/pkg/logger"
	"sitetrack/pkg/metrics"
)

func (s *Service) Start(ctx context.Context, actor Actor, id int64) (*model.Project, error) {
	return s.transition(ctx, actor, id, func(p *model.Project, now time.Time) error {
		return progress.Start(p, now)
	})
}

func (s *Service) Postpone(ctx context.Context, actor Actor, id int64) (*model.Project, error) {
	return s.transition(ctx, actor, id, func(p *model.Project, now time.Time) error {
		return progress.Postpone(p, now)
	})
}

// Resume fails with progress.ErrInvalidTransition, and saves nothing,
// when the project has no open postponement.
func (s *Service) Resume(ctx context.Context, actor Actor, id int64) (*model.Project, error) {
	return s.transition(ctx, actor, id, func(p *model.Project, now time.Time) error {
		return progress.Resume(p, now)
	})
}

func (s *Service) End(ctx context.Context, actor Actor, id int64) (*model.Project, error) {
	return s.transition(ctx, actor, id, func(p *model.Project, now time.Time) error {
		progress.End(p, now)
		return nil
	})
}

// SetStatus drives the project to status through the lifecycle. Moving
// to finished or postponed this way also pins every floor and task:
// finished pins them at 100, postponed at their current value. Moving to
// ongoing resumes a postponed project and restarts any other one.
func (s *Service) SetStatus(ctx context.Context, actor Actor, id int64, status model.Status) (*model.Project, error) {
	var step func(p *model.Project, now time.Time) error
	switch status {
	case model.StatusFinished:
		step = func(p *model.Project, now time.Time) error {
			progress.End(p, now)
			p.PinAllAt(100)
			p.Progress = model.Auto(100)
			progress.RebaseAggregate(p, 100, now)
			return nil
		}
	case model.StatusPostponed:
		step = func(p *model.Project, now time.Time) error {
			if err := progress.Postpone(p, now); err != nil {
				return err
			}
			p.PinAll()
			return nil
		}
	case model.StatusOngoing:
		step = func(p *model.Project, now time.Time) error {
			switch p.Status {
			case model.StatusOngoing:
				return nil
			case model.StatusPostponed:
				return progress.Resume(p, now)
			default:
				return progress.Start(p, now)
			}
		}
	default:
		return nil, fmt.Errorf("%w: cannot set status to %q", progress.ErrValidation, status)
	}
	return s.transition(ctx, actor, id, step)
}

// transition wraps a lifecycle step so that a real status change is
// counted and announced.
func (s *Service) transition(ctx context.Context, actor Actor, id int64, step func(*model.Project, time.Time) error) (*model.Project, error) {
	return s.mutate(ctx, actor, id, func(p *model.Project, now time.Time) ([]model.Event, error) {
		from := p.Status
		if err := step(p, now); err != nil {
			return nil, err
		}
		if p.Status == from {
			return nil, nil
		}

		metrics.IncrementTransition(string(from), string(p.Status))
		logger.WithTrace(ctx, s.logger).Info("Project status changed",
			zap.Int64("project_id", p.ID),
			zap.String("from", string(from)),
			zap.String("to", string(p.Status)),
			zap.Int("user_id", actor.UserID),
		)
		return []model.Event{statusChangedEvent(ctx, p, from, false, now)}, nil
	})
}
