package project

import (
	"context"
	"time"

	mqcontracts "sitetrack/contracts/mq"
	"sitetrack/internal/model"
	"sitetrack/pkg/trace"
)

const (
	LevelProject = "project"
	LevelFloor   = "floor"
	LevelTask    = "task"
)

func createdEvent(ctx context.Context, p *model.Project) model.Event {
	return model.Event{
		RoutingKey: mqcontracts.RoutingProjectCreated,
		Payload: mqcontracts.ProjectCreatedPayload{
			ProjectID:    p.ID,
			ContractorID: p.ContractorID,
			OwnerID:      p.OwnerID,
			Name:         p.Name,
			FloorCount:   len(p.Floors),
			CreatedAt:    p.CreatedAt,
			TraceID:      trace.FromContext(ctx),
		},
	}
}

func statusChangedEvent(ctx context.Context, p *model.Project, from model.Status, automatic bool, at time.Time) model.Event {
	return model.Event{
		RoutingKey: mqcontracts.RoutingProjectStatusChanged,
		Payload: mqcontracts.ProjectStatusChangedPayload{
			ProjectID: p.ID,
			From:      string(from),
			To:        string(p.Status),
			Automatic: automatic,
			Progress:  p.Progress.Value(),
			ChangedAt: at,
			TraceID:   trace.FromContext(ctx),
		},
	}
}

type pinTarget struct {
	level   string
	floorID string
	taskID  string
}

func progressPinnedEvent(ctx context.Context, p *model.Project, actor Actor, target pinTarget, v model.Progress, at time.Time) model.Event {
	return model.Event{
		RoutingKey: mqcontracts.RoutingProjectProgressPinned,
		Payload: mqcontracts.ProjectProgressPinnedPayload{
			ProjectID: p.ID,
			Level:     target.level,
			FloorID:   target.floorID,
			TaskID:    target.taskID,
			Value:     v.Value(),
			IsManual:  v.IsManual(),
			UserID:    actor.UserID,
			PinnedAt:  at,
			TraceID:   trace.FromContext(ctx),
		},
	}
}
