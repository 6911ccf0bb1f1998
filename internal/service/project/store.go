package project

import (
	"context"

	"sitetrack/internal/model"
	"sitetrack/pkg/rbac"
)

// Store persists whole project documents. Insert and Save write the given
// events to the outbox in the same transaction as the document. Get
// returns an error wrapping progress.ErrNotFound for unknown ids.
type Store interface {
	Get(ctx context.Context, id int64) (*model.Project, error)
	Insert(ctx context.Context, p *model.Project, events EventsFunc) error
	Save(ctx context.Context, p *model.Project, events ...model.Event) error
	ListByContractor(ctx context.Context, contractorID int) ([]*model.Project, error)
	ListByOwner(ctx context.Context, ownerID int) ([]*model.Project, error)
	ListIDsByStatus(ctx context.Context, status model.Status) ([]int64, error)
}

// EventsFunc builds outbox events once the store has assigned p.ID.
type EventsFunc func(p *model.Project) []model.Event

// Actor is the authenticated caller, as carried by the JWT.
type Actor struct {
	UserID int
	Role   string
}

// canSee reports whether the actor may read or change p. Admins see
// everything, everyone else only the projects they take part in.
func (a Actor) canSee(p *model.Project) bool {
	return a.Role == rbac.RoleAdmin || p.HasParticipant(a.UserID)
}
