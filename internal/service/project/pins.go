package project

import (
	"context"
	"fmt"
	"time"

	"sitetrack/internal/model"
	"sitetrack/internal/progress"
	"sitetrack/pkg/metrics"
)

// SetProjectProgress sets the project aggregate. Floors and tasks keep
// following the timeline.
func (s *Service) SetProjectProgress(ctx context.Context, actor Actor, id int64, value int, manual bool) (*model.Project, error) {
	if err := progress.ValidatePercent(value); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, id, func(p *model.Project, now time.Time) ([]model.Event, error) {
		p.Progress = newProgress(value, manual)
		return s.pinned(ctx, p, actor, pinTarget{level: LevelProject}, p.Progress, now), nil
	})
}

// ResetProjectToAutomatic hands the aggregate back to the engine. The
// pinned value becomes the starting point so progress never jumps back.
func (s *Service) ResetProjectToAutomatic(ctx context.Context, actor Actor, id int64) (*model.Project, error) {
	return s.mutate(ctx, actor, id, func(p *model.Project, now time.Time) ([]model.Event, error) {
		if p.Progress.IsManual() {
			progress.RebaseAggregate(p, p.Progress.Value(), now)
		}
		p.Progress = p.Progress.Unpinned()
		return s.pinned(ctx, p, actor, pinTarget{level: LevelProject}, p.Progress, now), nil
	})
}

// SetFloorProgress sets one floor. A manual value survives every later
// recompute, an automatic one is overwritten by the next pass.
func (s *Service) SetFloorProgress(ctx context.Context, actor Actor, id int64, floorID string, value int, manual bool) (*model.Project, error) {
	if err := progress.ValidatePercent(value); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, id, func(p *model.Project, now time.Time) ([]model.Event, error) {
		f, err := floorOf(p, floorID)
		if err != nil {
			return nil, err
		}
		f.Progress = newProgress(value, manual)
		return s.pinned(ctx, p, actor, pinTarget{level: LevelFloor, floorID: floorID}, f.Progress, now), nil
	})
}

func (s *Service) ResetFloorToAutomatic(ctx context.Context, actor Actor, id int64, floorID string) (*model.Project, error) {
	return s.mutate(ctx, actor, id, func(p *model.Project, now time.Time) ([]model.Event, error) {
		f, err := floorOf(p, floorID)
		if err != nil {
			return nil, err
		}
		f.Progress = f.Progress.Unpinned()
		return s.pinned(ctx, p, actor, pinTarget{level: LevelFloor, floorID: floorID}, f.Progress, now), nil
	})
}

func (s *Service) SetTaskProgress(ctx context.Context, actor Actor, id int64, floorID, taskID string, value int, manual bool) (*model.Project, error) {
	if err := progress.ValidatePercent(value); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, id, func(p *model.Project, now time.Time) ([]model.Event, error) {
		t, err := taskOf(p, floorID, taskID)
		if err != nil {
			return nil, err
		}
		t.Progress = newProgress(value, manual)
		target := pinTarget{level: LevelTask, floorID: floorID, taskID: taskID}
		return s.pinned(ctx, p, actor, target, t.Progress, now), nil
	})
}

func (s *Service) ResetTaskToAutomatic(ctx context.Context, actor Actor, id int64, floorID, taskID string) (*model.Project, error) {
	return s.mutate(ctx, actor, id, func(p *model.Project, now time.Time) ([]model.Event, error) {
		t, err := taskOf(p, floorID, taskID)
		if err != nil {
			return nil, err
		}
		t.Progress = t.Progress.Unpinned()
		target := pinTarget{level: LevelTask, floorID: floorID, taskID: taskID}
		return s.pinned(ctx, p, actor, target, t.Progress, now), nil
	})
}

func (s *Service) pinned(ctx context.Context, p *model.Project, actor Actor, target pinTarget, v model.Progress, now time.Time) []model.Event {
	action := "reset"
	if v.IsManual() {
		action = "pin"
	}
	metrics.IncrementPin(target.level, action)
	return []model.Event{progressPinnedEvent(ctx, p, actor, target, v, now)}
}

func newProgress(value int, manual bool) model.Progress {
	if manual {
		return model.Manual(value)
	}
	return model.Auto(value)
}

func floorOf(p *model.Project, floorID string) (*model.Floor, error) {
	i := p.FloorIndex(floorID)
	if i < 0 {
		return nil, fmt.Errorf("%w: floor %s in project %d", progress.ErrNotFound, floorID, p.ID)
	}
	return &p.Floors[i], nil
}

func taskOf(p *model.Project, floorID, taskID string) (*model.Task, error) {
	f, err := floorOf(p, floorID)
	if err != nil {
		return nil, err
	}
	j := f.TaskIndex(taskID)
	if j < 0 {
		return nil, fmt.Errorf("%w: task %s on floor %s", progress.ErrNotFound, taskID, floorID)
	}
	return &f.Tasks[j], nil
}
