package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"sitetrack/internal/model"
	"sitetrack/internal/progress"
	projectsvc "sitetrack/internal/service/project"
	"sitetrack/pkg/otel"
	"sitetrack/pkg/outbox"
)

const aggregateProject = "project"

// ProjectRepository stores each project as one JSONB document. Status and
// participant ids are copied into their own columns for the list queries.
type ProjectRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		outbox: outbox.NewRepository(db),
		logger: logger,
	}
}

var _ projectsvc.Store = (*ProjectRepository)(nil)

func (r *ProjectRepository) Get(ctx context.Context, id int64) (*model.Project, error) {
	query := `SELECT doc FROM projects WHERE id = $1`

	var doc []byte
	err := otel.Query(ctx, "select", "projects", query, func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, id).Scan(&doc)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: project %d", progress.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %d: %w", id, err)
	}
	return decodeProject(id, doc)
}

// Insert reserves an id, writes the document and the events built for it
// in a single transaction.
func (r *ProjectRepository) Insert(ctx context.Context, p *model.Project, events projectsvc.EventsFunc) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	seqQuery := `SELECT nextval(pg_get_serial_sequence('projects', 'id'))`
	err = otel.Query(ctx, "select", "projects", seqQuery, func(ctx context.Context) error {
		return tx.QueryRow(ctx, seqQuery).Scan(&p.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to reserve project id: %w", err)
	}

	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}

	query := `
		INSERT INTO projects (id, contractor_id, owner_id, status, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	err = otel.Query(ctx, "insert", "projects", query, func(ctx context.Context) error {
		_, err := tx.Exec(ctx, query, p.ID, p.ContractorID, p.OwnerID, string(p.Status), doc, p.CreatedAt, p.UpdatedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	var evs []model.Event
	if events != nil {
		evs = events(p)
	}
	if err := r.insertEvents(ctx, tx, p.ID, evs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug("Project inserted",
		zap.Int64("project_id", p.ID),
		zap.Int("events", len(evs)),
	)
	return nil
}

// Save overwrites the whole document. Last writer wins.
func (r *ProjectRepository) Save(ctx context.Context, p *model.Project, events ...model.Event) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE projects
		SET contractor_id = $2, owner_id = $3, status = $4, doc = $5, updated_at = $6
		WHERE id = $1
	`
	var affected int64
	err = otel.Query(ctx, "update", "projects", query, func(ctx context.Context) error {
		tag, err := tx.Exec(ctx, query, p.ID, p.ContractorID, p.OwnerID, string(p.Status), doc, p.UpdatedAt)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update project %d: %w", p.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: project %d", progress.ErrNotFound, p.ID)
	}

	if err := r.insertEvents(ctx, tx, p.ID, events); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *ProjectRepository) ListByContractor(ctx context.Context, contractorID int) ([]*model.Project, error) {
	return r.list(ctx, `SELECT id, doc FROM projects WHERE contractor_id = $1 ORDER BY id`, contractorID)
}

func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID int) ([]*model.Project, error) {
	return r.list(ctx, `SELECT id, doc FROM projects WHERE owner_id = $1 ORDER BY id`, ownerID)
}

func (r *ProjectRepository) ListIDsByStatus(ctx context.Context, status model.Status) ([]int64, error) {
	query := `SELECT id FROM projects WHERE status = $1 ORDER BY id`

	var ids []int64
	err := otel.Query(ctx, "select", "projects", query, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, string(status))
		if err != nil {
			return err
		}
		ids, err = pgx.CollectRows(rows, pgx.RowTo[int64])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s projects: %w", status, err)
	}
	return ids, nil
}

func (r *ProjectRepository) list(ctx context.Context, query string, userID int) ([]*model.Project, error) {
	var projects []*model.Project
	err := otel.Query(ctx, "select", "projects", query, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				id  int64
				doc []byte
			)
			if err := rows.Scan(&id, &doc); err != nil {
				return err
			}
			p, err := decodeProject(id, doc)
			if err != nil {
				return err
			}
			projects = append(projects, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects for user %d: %w", userID, err)
	}
	return projects, nil
}

func (r *ProjectRepository) insertEvents(ctx context.Context, tx pgx.Tx, projectID int64, events []model.Event) error {
	for _, ev := range events {
		if err := outbox.InsertEventInTx(ctx, tx, r.outbox, aggregateProject, &projectID, ev.RoutingKey, ev.Payload); err != nil {
			return err
		}
	}
	return nil
}

func decodeProject(id int64, doc []byte) (*model.Project, error) {
	var p model.Project
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("failed to decode project %d: %w", id, err)
	}
	p.ID = id
	return &p, nil
}
