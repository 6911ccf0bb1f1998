package project

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"sitetrack/internal/model"
	"sitetrack/internal/progress"
)

// CreateRequest describes a new project. ContractorID is only honoured
// for admins; contractors always create projects for themselves.
type CreateRequest struct {
	Name         string         `json:"name"`
	ContractorID int            `json:"contractor_id"`
	OwnerID      int            `json:"owner_id"`
	TemplateTier string         `json:"template_tier"`
	Timeline     model.Timeline `json:"timeline"`
	Floors       []FloorInput   `json:"floors"`
}

type FloorInput struct {
	Name  string      `json:"name"`
	Tasks []TaskInput `json:"tasks"`
}

type TaskInput struct {
	Name string `json:"name"`
}

func (r CreateRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", progress.ErrValidation)
	}
	if strings.TrimSpace(r.TemplateTier) == "" {
		return fmt.Errorf("%w: template_tier is required", progress.ErrValidation)
	}
	if r.OwnerID <= 0 {
		return fmt.Errorf("%w: owner_id is required", progress.ErrValidation)
	}
	return progress.ValidateTimeline(r.Timeline)
}

// UpdateRequest patches a project. Nil fields are left alone. Floors and
// tasks are merged by id: known ids are patched field by field, unknown
// or empty ids are appended as new nodes.
type UpdateRequest struct {
	Name         *string         `json:"name,omitempty"`
	OwnerID      *int            `json:"owner_id,omitempty"`
	TemplateTier *string         `json:"template_tier,omitempty"`
	Timeline     *model.Timeline `json:"timeline,omitempty"`
	Floors       []FloorPatch    `json:"floors,omitempty"`
}

// FloorPatch and TaskPatch carry optional progress. A value without
// is_manual pins it. is_manual alone pins or unpins the current value.
type FloorPatch struct {
	ID       string      `json:"id,omitempty"`
	Name     *string     `json:"name,omitempty"`
	Progress *int        `json:"progress,omitempty"`
	IsManual *bool       `json:"is_manual,omitempty"`
	Tasks    []TaskPatch `json:"tasks,omitempty"`
}

type TaskPatch struct {
	ID       string  `json:"id,omitempty"`
	Name     *string `json:"name,omitempty"`
	Progress *int    `json:"progress,omitempty"`
	IsManual *bool   `json:"is_manual,omitempty"`
}

func (r UpdateRequest) validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", progress.ErrValidation)
	}
	if r.TemplateTier != nil && strings.TrimSpace(*r.TemplateTier) == "" {
		return fmt.Errorf("%w: template_tier cannot be empty", progress.ErrValidation)
	}
	if r.OwnerID != nil && *r.OwnerID <= 0 {
		return fmt.Errorf("%w: owner_id must be positive", progress.ErrValidation)
	}
	for _, fp := range r.Floors {
		if err := validatePatchProgress(fp.Progress); err != nil {
			return err
		}
		for _, tp := range fp.Tasks {
			if err := validatePatchProgress(tp.Progress); err != nil {
				return err
			}
		}
	}
	if r.Timeline != nil {
		return progress.ValidateTimeline(*r.Timeline)
	}
	return nil
}

func validatePatchProgress(v *int) error {
	if v == nil {
		return nil
	}
	return progress.ValidatePercent(*v)
}

// apply merges r into p. The timeline in a patch is the planned length;
// days already spent postponed are added on top of it.
func (r UpdateRequest) apply(p *model.Project) {
	if r.Name != nil {
		p.Name = strings.TrimSpace(*r.Name)
	}
	if r.OwnerID != nil {
		p.OwnerID = *r.OwnerID
	}
	if r.TemplateTier != nil {
		p.TemplateTier = strings.TrimSpace(*r.TemplateTier)
	}
	if r.Timeline != nil {
		planned := model.Timeline{Duration: r.Timeline.Duration, Unit: r.Timeline.Unit}
		p.Timeline = progress.ExtendTimeline(planned, progress.PausedDays(p.PostponedDates, p.ResumedDates))
	}
	for _, fp := range r.Floors {
		mergeFloor(p, fp)
	}
}

func mergeFloor(p *model.Project, fp FloorPatch) {
	i := -1
	if fp.ID != "" {
		i = p.FloorIndex(fp.ID)
	}
	if i < 0 {
		p.Floors = append(p.Floors, model.Floor{ID: idOr(fp.ID), Tasks: []model.Task{}})
		i = len(p.Floors) - 1
	}

	f := &p.Floors[i]
	if fp.Name != nil {
		f.Name = *fp.Name
	}
	f.Progress = patchProgress(f.Progress, fp.Progress, fp.IsManual)
	for _, tp := range fp.Tasks {
		j := -1
		if tp.ID != "" {
			j = f.TaskIndex(tp.ID)
		}
		if j < 0 {
			f.Tasks = append(f.Tasks, model.Task{ID: idOr(tp.ID)})
			j = len(f.Tasks) - 1
		}
		if tp.Name != nil {
			f.Tasks[j].Name = *tp.Name
		}
		f.Tasks[j].Progress = patchProgress(f.Tasks[j].Progress, tp.Progress, tp.IsManual)
	}
}

func patchProgress(cur model.Progress, value *int, manual *bool) model.Progress {
	switch {
	case value != nil:
		return newProgress(*value, manual == nil || *manual)
	case manual != nil && *manual:
		return cur.Pinned()
	case manual != nil:
		return cur.Unpinned()
	}
	return cur
}

func newFloors(in []FloorInput) []model.Floor {
	floors := make([]model.Floor, 0, len(in))
	for _, fi := range in {
		f := model.Floor{ID: uuid.NewString(), Name: fi.Name, Tasks: make([]model.Task, 0, len(fi.Tasks))}
		for _, ti := range fi.Tasks {
			f.Tasks = append(f.Tasks, model.Task{ID: uuid.NewString(), Name: ti.Name})
		}
		floors = append(floors, f)
	}
	return floors
}

func idOr(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
