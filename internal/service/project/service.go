package project

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"

	"sitetrack/internal/model"
	"sitetrack/internal/progress"
	"sitetrack/pkg/logger"
	"sitetrack/pkg/metrics"
	"sitetrack/pkg/rbac"
)

// Recompute triggers, used as metric labels.
const (
	TriggerRead     = "read"
	TriggerMutation = "mutation"
	TriggerSweep    = "sweep"
	TriggerRequest  = "request"
)

// Outcome of a read-path recompute.
type Outcome string

const (
	OutcomeChanged   Outcome = "changed"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFrozen    Outcome = "frozen"
)

// Service is the only writer of project documents. Every read and every
// mutation goes through the progress engine before it is returned or
// persisted.
type Service struct {
	store  Store
	engine *progress.Engine
	now    func() time.Time
	logger *zap.Logger
}

func NewService(store Store, engine *progress.Engine, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		engine: engine,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the wall clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Create validates req and stores a not-started project with every node
// in automatic mode.
func (s *Service) Create(ctx context.Context, actor Actor, req CreateRequest) (*model.Project, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	contractorID := actor.UserID
	if actor.Role == rbac.RoleAdmin && req.ContractorID > 0 {
		contractorID = req.ContractorID
	}

	now := s.now()
	p := &model.Project{
		ContractorID:   contractorID,
		OwnerID:        req.OwnerID,
		Name:           strings.TrimSpace(req.Name),
		TemplateTier:   strings.TrimSpace(req.TemplateTier),
		Status:         model.StatusNotStarted,
		Timeline:       model.Timeline{Duration: req.Timeline.Duration, Unit: req.Timeline.Unit},
		ReferenceDate:  now,
		Progress:       model.Auto(0),
		PostponedDates: []time.Time{},
		ResumedDates:   []time.Time{},
		Floors:         newFloors(req.Floors),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.engine.Recompute(p, now)

	err := s.store.Insert(ctx, p, func(p *model.Project) []model.Event {
		return []model.Event{createdEvent(ctx, p)}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}

	logger.WithTrace(ctx, s.logger).Info("Project created",
		zap.Int64("project_id", p.ID),
		zap.Int("contractor_id", p.ContractorID),
		zap.Int("owner_id", p.OwnerID),
		zap.Int("floors", len(p.Floors)),
	)
	return p, nil
}

// Get returns the project brought up to date as of now.
func (s *Service) Get(ctx context.Context, actor Actor, id int64) (*model.Project, error) {
	p, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.refresh(ctx, p, TriggerRead); err != nil {
		return nil, err
	}
	return p, nil
}

// ListForContractor returns every project the actor runs as contractor.
func (s *Service) ListForContractor(ctx context.Context, actor Actor) ([]*model.Project, error) {
	projects, err := s.store.ListByContractor(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects for contractor %d: %w", actor.UserID, err)
	}
	return s.refreshAll(ctx, projects)
}

// ListForOwner returns every project the actor owns.
func (s *Service) ListForOwner(ctx context.Context, actor Actor) ([]*model.Project, error) {
	projects, err := s.store.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects for owner %d: %w", actor.UserID, err)
	}
	return s.refreshAll(ctx, projects)
}

// Recompute refreshes one project without an access check. It backs the
// daily sweep and recompute requests from the queue.
func (s *Service) Recompute(ctx context.Context, id int64, trigger string) (Outcome, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.refresh(ctx, p, trigger)
}

// OngoingIDs lists the projects the daily sweep must visit.
func (s *Service) OngoingIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.store.ListIDsByStatus(ctx, model.StatusOngoing)
	if err != nil {
		return nil, fmt.Errorf("failed to list ongoing projects: %w", err)
	}
	return ids, nil
}

// Update merges req into the project.
func (s *Service) Update(ctx context.Context, actor Actor, id int64, req UpdateRequest) (*model.Project, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, id, func(p *model.Project, _ time.Time) ([]model.Event, error) {
		req.apply(p)
		return nil, nil
	})
}

func (s *Service) load(ctx context.Context, actor Actor, id int64) (*model.Project, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canSee(p) {
		return nil, fmt.Errorf("%w: project %d", progress.ErrNotFound, id)
	}
	return p, nil
}

// recompute runs the engine and turns an automatic finish into an event.
func (s *Service) recompute(ctx context.Context, p *model.Project, now time.Time) (progress.Result, []model.Event) {
	from := p.Status
	res := s.engine.Recompute(p, now)
	if !res.AutoFinished {
		return res, nil
	}

	metrics.IncrementTransition(string(from), string(p.Status))
	logger.WithTrace(ctx, s.logger).Info("Project finished on schedule",
		zap.Int64("project_id", p.ID),
		zap.Int("elapsed_days", res.ElapsedDays),
		zap.Float64("total_progress", res.TotalProgress),
	)
	return res, []model.Event{statusChangedEvent(ctx, p, from, true, now)}
}

// refresh recomputes p in place and saves it only if something changed.
func (s *Service) refresh(ctx context.Context, p *model.Project, trigger string) (Outcome, error) {
	now := s.now()
	before := p.Clone()

	res, events := s.recompute(ctx, p, now)
	if res.Frozen {
		metrics.IncrementRecompute(trigger, string(OutcomeFrozen))
		return OutcomeFrozen, nil
	}
	if reflect.DeepEqual(before, p) {
		metrics.IncrementRecompute(trigger, string(OutcomeUnchanged))
		return OutcomeUnchanged, nil
	}

	p.UpdatedAt = now
	if err := s.store.Save(ctx, p, events...); err != nil {
		return "", fmt.Errorf("failed to save project %d: %w", p.ID, err)
	}
	metrics.IncrementRecompute(trigger, string(OutcomeChanged))
	return OutcomeChanged, nil
}

func (s *Service) refreshAll(ctx context.Context, projects []*model.Project) ([]*model.Project, error) {
	for _, p := range projects {
		if _, err := s.refresh(ctx, p, TriggerRead); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

type mutation func(p *model.Project, now time.Time) ([]model.Event, error)

// mutate applies op to a copy of the up-to-date project and persists the
// result together with its events. A failing op persists nothing.
func (s *Service) mutate(ctx context.Context, actor Actor, id int64, op mutation) (*model.Project, error) {
	stored, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := stored.Clone()
	_, events := s.recompute(ctx, p, now)

	opEvents, err := op(p, now)
	if err != nil {
		return nil, err
	}
	events = append(events, opEvents...)

	_, after := s.recompute(ctx, p, now)
	events = append(events, after...)

	p.UpdatedAt = now
	if err := s.store.Save(ctx, p, events...); err != nil {
		return nil, fmt.Errorf("failed to save project %d: %w", p.ID, err)
	}
	metrics.IncrementRecompute(TriggerMutation, string(OutcomeChanged))
	return p, nil
}
