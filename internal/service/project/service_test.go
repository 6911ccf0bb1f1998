package project

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "sitetrack/contracts/mq"
	"sitetrack/internal/model"
	"sitetrack/internal/progress"
	"sitetrack/pkg/rbac"
	"sitetrack/pkg/trace"
)

var day0 = time.Date(2024, 1, 8, 8, 0, 0, 0, time.UTC)

// memStore keeps projects as JSON documents, like the real table does.
type memStore struct {
	docs   map[int64][]byte
	nextID int64
	events []model.Event
	saves  int
}

func newMemStore() *memStore {
	return &memStore{docs: map[int64][]byte{}}
}

func (m *memStore) put(p *model.Project) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	m.docs[p.ID] = doc
	return nil
}

func (m *memStore) Get(_ context.Context, id int64) (*model.Project, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: project %d", progress.ErrNotFound, id)
	}
	var p model.Project
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *memStore) Insert(_ context.Context, p *model.Project, events EventsFunc) error {
	m.nextID++
	p.ID = m.nextID
	m.events = append(m.events, events(p)...)
	return m.put(p)
}

func (m *memStore) Save(_ context.Context, p *model.Project, events ...model.Event) error {
	if _, ok := m.docs[p.ID]; !ok {
		return fmt.Errorf("%w: project %d", progress.ErrNotFound, p.ID)
	}
	m.saves++
	m.events = append(m.events, events...)
	return m.put(p)
}

func (m *memStore) list(keep func(*model.Project) bool) ([]*model.Project, error) {
	var out []*model.Project
	for _, id := range slices.Sorted(maps.Keys(m.docs)) {
		p, err := m.Get(context.Background(), id)
		if err != nil {
			return nil, err
		}
		if keep(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) ListByContractor(_ context.Context, contractorID int) ([]*model.Project, error) {
	return m.list(func(p *model.Project) bool { return p.ContractorID == contractorID })
}

func (m *memStore) ListByOwner(_ context.Context, ownerID int) ([]*model.Project, error) {
	return m.list(func(p *model.Project) bool { return p.OwnerID == ownerID })
}

func (m *memStore) ListIDsByStatus(_ context.Context, status model.Status) ([]int64, error) {
	ps, err := m.list(func(p *model.Project) bool { return p.Status == status })
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (m *memStore) lastEvent(t *testing.T, routingKey string) model.Event {
	t.Helper()
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].RoutingKey == routingKey {
			return m.events[i]
		}
	}
	t.Fatalf("no %s event recorded", routingKey)
	return model.Event{}
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) setDay(n int) { c.now = day0.AddDate(0, 0, n) }

var (
	contractor = Actor{UserID: 10, Role: rbac.RoleContractor}
	owner      = Actor{UserID: 20, Role: rbac.RoleOwner}
	admin      = Actor{UserID: 1, Role: rbac.RoleAdmin}
	stranger   = Actor{UserID: 99, Role: rbac.RoleContractor}
)

func newTestService() (*Service, *memStore, *clock) {
	store := newMemStore()
	c := &clock{now: day0}
	svc := NewService(store, progress.NewEngine(progress.DefaultFloorPenalty), zap.NewNop()).WithClock(c.Now)
	return svc, store, c
}

// sampleRequest is a two-month project with three floors holding 2, 1 and
// 2 tasks.
func sampleRequest() CreateRequest {
	return CreateRequest{
		Name:         "Riverside Block C",
		OwnerID:      owner.UserID,
		TemplateTier: "standard",
		Timeline:     model.Timeline{Duration: 2, Unit: model.UnitMonths},
		Floors: []FloorInput{
			{Name: "Ground", Tasks: []TaskInput{{Name: "Columns"}, {Name: "Slab"}}},
			{Name: "First", Tasks: []TaskInput{{Name: "Walls"}}},
			{Name: "Roof", Tasks: []TaskInput{{Name: "Frame"}, {Name: "Tiles"}}},
		},
	}
}

func startedProject(t *testing.T, svc *Service) *model.Project {
	t.Helper()
	p, err := svc.Create(context.Background(), contractor, sampleRequest())
	require.NoError(t, err)
	p, err = svc.Start(context.Background(), contractor, p.ID)
	require.NoError(t, err)
	return p
}

func TestCreate(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := trace.WithContext(context.Background(), "trace-1")

	p, err := svc.Create(ctx, contractor, sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, contractor.UserID, p.ContractorID)
	assert.Equal(t, model.StatusNotStarted, p.Status)
	assert.Equal(t, model.Auto(0), p.Progress)
	require.Len(t, p.Floors, 3)

	seen := map[string]bool{}
	for _, f := range p.Floors {
		assert.NotEmpty(t, f.ID)
		assert.False(t, seen[f.ID], "duplicate id %s", f.ID)
		seen[f.ID] = true
		for _, task := range f.Tasks {
			assert.NotEmpty(t, task.ID)
			assert.False(t, seen[task.ID], "duplicate id %s", task.ID)
			seen[task.ID] = true
			assert.Equal(t, model.Auto(0), task.Progress)
		}
	}

	ev := store.lastEvent(t, mqcontracts.RoutingProjectCreated)
	payload := ev.Payload.(mqcontracts.ProjectCreatedPayload)
	assert.Equal(t, p.ID, payload.ProjectID)
	assert.Equal(t, 3, payload.FloorCount)
	assert.Equal(t, "trace-1", payload.TraceID)
}

func TestCreate_AdminChoosesContractor(t *testing.T) {
	svc, _, _ := newTestService()
	req := sampleRequest()
	req.ContractorID = 42

	p, err := svc.Create(context.Background(), admin, req)
	require.NoError(t, err)
	assert.Equal(t, 42, p.ContractorID)

	p, err = svc.Create(context.Background(), contractor, req)
	require.NoError(t, err)
	assert.Equal(t, contractor.UserID, p.ContractorID, "contractors cannot create for someone else")
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"empty name", func(r *CreateRequest) { r.Name = "  " }},
		{"missing tier", func(r *CreateRequest) { r.TemplateTier = "" }},
		{"missing owner", func(r *CreateRequest) { r.OwnerID = 0 }},
		{"zero duration", func(r *CreateRequest) { r.Timeline.Duration = 0 }},
		{"bad unit", func(r *CreateRequest) { r.Timeline.Unit = "days" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService()
			req := sampleRequest()
			tt.mutate(&req)

			_, err := svc.Create(context.Background(), contractor, req)
			assert.ErrorIs(t, err, progress.ErrValidation)
			assert.Empty(t, store.docs)
		})
	}
}

func TestGet_Access(t *testing.T) {
	svc, _, _ := newTestService()
	p := startedProject(t, svc)

	for _, actor := range []Actor{contractor, owner, admin} {
		_, err := svc.Get(context.Background(), actor, p.ID)
		assert.NoError(t, err, "user %d", actor.UserID)
	}

	_, err := svc.Get(context.Background(), stranger, p.ID)
	assert.ErrorIs(t, err, progress.ErrNotFound)

	_, err = svc.Get(context.Background(), admin, 404)
	assert.ErrorIs(t, err, progress.ErrNotFound)
}

func TestGet_RecomputesAndPersists(t *testing.T) {
	svc, store, c := newTestService()
	p := startedProject(t, svc)
	saves := store.saves

	c.setDay(25)
	got, err := svc.Get(context.Background(), owner, p.ID)
	require.NoError(t, err)

	assert.Equal(t, model.Auto(42), got.Progress)
	assert.Equal(t, 100, got.Floors[0].Progress.Value())
	assert.Equal(t, 21, got.Floors[1].Progress.Value())
	assert.Equal(t, 0, got.Floors[2].Progress.Value())
	assert.Equal(t, 50, got.Floors[0].Tasks[1].Progress.Value())
	assert.Equal(t, saves+1, store.saves)

	stored, err := store.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, stored.Progress.Value())
	assert.Equal(t, c.now, stored.UpdatedAt)

	// Same instant again: nothing to write.
	_, err = svc.Get(context.Background(), owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, saves+1, store.saves)
}

func TestListForContractorAndOwner(t *testing.T) {
	svc, _, _ := newTestService()
	mine, err := svc.Create(context.Background(), contractor, sampleRequest())
	require.NoError(t, err)

	other := sampleRequest()
	other.OwnerID = 77
	_, err = svc.Create(context.Background(), Actor{UserID: 11, Role: rbac.RoleContractor}, other)
	require.NoError(t, err)

	got, err := svc.ListForContractor(context.Background(), contractor)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine.ID, got[0].ID)

	got, err = svc.ListForOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine.ID, got[0].ID)

	got, err = svc.ListForOwner(context.Background(), stranger)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdate_MergesByID(t *testing.T) {
	svc, _, _ := newTestService()
	p := startedProject(t, svc)
	ground, first := p.Floors[0], p.Floors[1]

	name := "Ground floor"
	slab := "Slab pour"
	roof := "Roof terrace"
	proofing := "Waterproofing"
	got, err := svc.Update(context.Background(), contractor, p.ID, UpdateRequest{
		Floors: []FloorPatch{
			{ID: ground.ID, Name: &name},
			{ID: first.ID, Tasks: []TaskPatch{
				{ID: first.Tasks[0].ID, Name: &slab},
				{ID: "imported-7"},
			}},
			{Name: &roof, Tasks: []TaskPatch{{Name: &proofing}}},
		},
	})
	require.NoError(t, err)

	require.Len(t, got.Floors, 4)
	assert.Equal(t, "Ground floor", got.Floors[0].Name)
	assert.Len(t, got.Floors[0].Tasks, 2, "unpatched tasks are kept")

	require.Len(t, got.Floors[1].Tasks, 2)
	assert.Equal(t, first.Tasks[0].ID, got.Floors[1].Tasks[0].ID)
	assert.Equal(t, "Slab pour", got.Floors[1].Tasks[0].Name)
	assert.Equal(t, "imported-7", got.Floors[1].Tasks[1].ID)

	added := got.Floors[3]
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, "Roof terrace", added.Name)
	require.Len(t, added.Tasks, 1)
	assert.NotEmpty(t, added.Tasks[0].ID)
	assert.Equal(t, "Waterproofing", added.Tasks[0].Name)
	assert.Equal(t, "Riverside Block C", got.Name)
}

func TestUpdate_MergesProgress(t *testing.T) {
	svc, _, c := newTestService()
	p := startedProject(t, svc)
	ground, first, second := p.Floors[0], p.Floors[1], p.Floors[2]

	c.setDay(10)
	_, err := svc.SetTaskProgress(context.Background(), contractor, p.ID, second.ID, second.Tasks[0].ID, 90, true)
	require.NoError(t, err)

	roof := "Roof terrace"
	proofing := "Waterproofing"
	got, err := svc.Update(context.Background(), contractor, p.ID, UpdateRequest{
		Floors: []FloorPatch{
			{ID: ground.ID, Progress: ptr(80)},
			{ID: first.ID, Tasks: []TaskPatch{{ID: first.Tasks[0].ID, IsManual: ptr(true)}}},
			{ID: second.ID, Tasks: []TaskPatch{{ID: second.Tasks[0].ID, IsManual: ptr(false)}}},
			{Name: &roof, Progress: ptr(40), IsManual: ptr(true), Tasks: []TaskPatch{
				{Name: &proofing, Progress: ptr(15)},
			}},
		},
	})
	require.NoError(t, err)
	require.Len(t, got.Floors, 4)

	assert.Equal(t, model.Manual(80), got.Floors[0].Progress, "a value without is_manual pins")
	assert.True(t, got.Floors[1].Tasks[0].Progress.IsManual())
	assert.Equal(t, got.Floors[1].Progress.Value(), got.Floors[1].Tasks[0].Progress.Value(), "pinned at its current value")

	unpinned := got.Floors[2].Tasks[0].Progress
	assert.False(t, unpinned.IsManual())
	assert.Equal(t, got.Floors[2].Tasks[1].Progress, unpinned, "back on the floor's even split")

	assert.Equal(t, model.Manual(40), got.Floors[3].Progress)
	require.Len(t, got.Floors[3].Tasks, 1)
	assert.Equal(t, model.Manual(15), got.Floors[3].Tasks[0].Progress)
}

func TestUpdate_RejectsOutOfRangeProgress(t *testing.T) {
	svc, store, _ := newTestService()
	p := startedProject(t, svc)
	saves := store.saves

	_, err := svc.Update(context.Background(), contractor, p.ID, UpdateRequest{
		Floors: []FloorPatch{{ID: p.Floors[0].ID, Progress: ptr(101)}},
	})
	assert.ErrorIs(t, err, progress.ErrValidation)

	_, err = svc.Update(context.Background(), contractor, p.ID, UpdateRequest{
		Floors: []FloorPatch{{ID: p.Floors[0].ID, Tasks: []TaskPatch{{ID: p.Floors[0].Tasks[0].ID, Progress: ptr(-5)}}}},
	})
	assert.ErrorIs(t, err, progress.ErrValidation)

	assert.Equal(t, saves, store.saves)
}

func ptr[T any](v T) *T { return &v }

func TestUpdate_Timeline(t *testing.T) {
	svc, _, _ := newTestService()
	p := startedProject(t, svc)

	got, err := svc.Update(context.Background(), contractor, p.ID, UpdateRequest{
		Timeline: &model.Timeline{Duration: 10, Unit: model.UnitWeeks},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, got.Timeline.Duration)
	assert.Equal(t, model.UnitWeeks, got.Timeline.Unit)
}

func TestUpdate_Rejected(t *testing.T) {
	svc, store, _ := newTestService()
	p := startedProject(t, svc)
	saves := store.saves

	empty := ""
	_, err := svc.Update(context.Background(), contractor, p.ID, UpdateRequest{Name: &empty})
	assert.ErrorIs(t, err, progress.ErrValidation)

	_, err = svc.Update(context.Background(), contractor, p.ID, UpdateRequest{
		Timeline: &model.Timeline{Duration: -1, Unit: model.UnitMonths},
	})
	assert.ErrorIs(t, err, progress.ErrValidation)

	name := "Hijacked"
	_, err = svc.Update(context.Background(), stranger, p.ID, UpdateRequest{Name: &name})
	assert.ErrorIs(t, err, progress.ErrNotFound)

	assert.Equal(t, saves, store.saves)
}

func TestFloorPin_SurvivesTimeAndResets(t *testing.T) {
	svc, store, c := newTestService()
	p := startedProject(t, svc)
	floorID := p.Floors[1].ID

	c.setDay(5)
	got, err := svc.SetFloorProgress(context.Background(), contractor, p.ID, floorID, 80, true)
	require.NoError(t, err)
	assert.Equal(t, model.Manual(80), got.Floors[1].Progress)

	ev := store.lastEvent(t, mqcontracts.RoutingProjectProgressPinned)
	pin := ev.Payload.(mqcontracts.ProjectProgressPinnedPayload)
	assert.Equal(t, LevelFloor, pin.Level)
	assert.Equal(t, floorID, pin.FloorID)
	assert.Equal(t, 80, pin.Value)
	assert.True(t, pin.IsManual)
	assert.Equal(t, contractor.UserID, pin.UserID)

	c.setDay(25)
	got, err = svc.Get(context.Background(), owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Manual(80), got.Floors[1].Progress)
	assert.Equal(t, 100, got.Floors[0].Progress.Value())
	assert.Equal(t, 0, got.Floors[1].Tasks[0].Progress.Value(), "tasks of a pinned floor are left alone")

	got, err = svc.ResetFloorToAutomatic(context.Background(), contractor, p.ID, floorID)
	require.NoError(t, err)
	assert.Equal(t, model.Auto(21), got.Floors[1].Progress)
	assert.Equal(t, 21, got.Floors[1].Tasks[0].Progress.Value())
}

func TestTaskPin(t *testing.T) {
	svc, _, c := newTestService()
	p := startedProject(t, svc)
	floor := p.Floors[0]

	got, err := svc.SetTaskProgress(context.Background(), contractor, p.ID, floor.ID, floor.Tasks[0].ID, 90, true)
	require.NoError(t, err)
	assert.Equal(t, model.Manual(90), got.Floors[0].Tasks[0].Progress)

	c.setDay(25)
	got, err = svc.Get(context.Background(), contractor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Manual(90), got.Floors[0].Tasks[0].Progress)
	assert.Equal(t, 100, got.Floors[0].Tasks[1].Progress.Value(), "the only automatic task takes the whole floor")

	got, err = svc.ResetTaskToAutomatic(context.Background(), contractor, p.ID, floor.ID, floor.Tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.Auto(50), got.Floors[0].Tasks[0].Progress)
}

func TestPins_Rejected(t *testing.T) {
	svc, store, _ := newTestService()
	p := startedProject(t, svc)
	floor := p.Floors[0]
	saves := store.saves

	_, err := svc.SetFloorProgress(context.Background(), contractor, p.ID, floor.ID, 101, true)
	assert.ErrorIs(t, err, progress.ErrValidation)
	_, err = svc.SetTaskProgress(context.Background(), contractor, p.ID, floor.ID, floor.Tasks[0].ID, -1, true)
	assert.ErrorIs(t, err, progress.ErrValidation)
	_, err = svc.SetProjectProgress(context.Background(), contractor, p.ID, 150, true)
	assert.ErrorIs(t, err, progress.ErrValidation)

	_, err = svc.SetFloorProgress(context.Background(), contractor, p.ID, "missing", 10, true)
	assert.ErrorIs(t, err, progress.ErrNotFound)
	_, err = svc.ResetTaskToAutomatic(context.Background(), contractor, p.ID, floor.ID, "missing")
	assert.ErrorIs(t, err, progress.ErrNotFound)

	assert.Equal(t, saves, store.saves)
}

func TestProjectPin_ResetContinuesFromPinnedValue(t *testing.T) {
	svc, _, c := newTestService()
	p := startedProject(t, svc)

	c.setDay(10)
	got, err := svc.SetProjectProgress(context.Background(), contractor, p.ID, 70, true)
	require.NoError(t, err)
	assert.Equal(t, model.Manual(70), got.Progress)
	assert.Equal(t, 50, got.Floors[0].Progress.Value(), "floors keep following the timeline")

	c.setDay(20)
	got, err = svc.Get(context.Background(), contractor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Manual(70), got.Progress)
	before := floorValues(got)

	got, err = svc.ResetProjectToAutomatic(context.Background(), contractor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Auto(70), got.Progress)
	assert.Equal(t, before, floorValues(got), "resetting the aggregate does not move the floors")

	c.setDay(26)
	got, err = svc.Get(context.Background(), contractor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Auto(80), got.Progress)
}

func TestProjectPin_ResetLeavesFloorsOnSchedule(t *testing.T) {
	for _, tc := range []struct {
		name  string
		day   int
		value int
	}{
		{"ahead of schedule", 20, 70},
		{"behind schedule", 30, 5},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, c := newTestService()
			p := startedProject(t, svc)

			c.setDay(tc.day)
			got, err := svc.Get(context.Background(), contractor, p.ID)
			require.NoError(t, err)
			scheduled := floorValues(got)

			_, err = svc.SetProjectProgress(context.Background(), contractor, p.ID, tc.value, true)
			require.NoError(t, err)
			got, err = svc.ResetProjectToAutomatic(context.Background(), contractor, p.ID)
			require.NoError(t, err)

			assert.Equal(t, model.Auto(tc.value), got.Progress)
			assert.Equal(t, scheduled, floorValues(got))
		})
	}
}

func floorValues(p *model.Project) []int {
	out := make([]int, 0, len(p.Floors))
	for _, f := range p.Floors {
		out = append(out, f.Progress.Value())
	}
	return out
}

func TestLifecycle_PostponeResumeExtendsTimeline(t *testing.T) {
	svc, store, c := newTestService()
	p := startedProject(t, svc)

	c.setDay(10)
	got, err := svc.Postpone(context.Background(), owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPostponed, got.Status)
	assert.Equal(t, 17, got.Progress.Value())

	c.setDay(17)
	got, err = svc.Get(context.Background(), owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 17, got.Progress.Value(), "postponed projects are frozen")

	got, err = svc.Resume(context.Background(), owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOngoing, got.Status)
	assert.Equal(t, model.Timeline{Duration: 3, Unit: model.UnitMonths, BaseDuration: 2}, got.Timeline)
	assert.Equal(t, c.now, got.ReferenceDate)
	assert.Equal(t, 17, got.Progress.Value())
	assert.Len(t, got.PostponedDates, 1)
	assert.Len(t, got.ResumedDates, 1)

	ev := store.lastEvent(t, mqcontracts.RoutingProjectStatusChanged)
	changed := ev.Payload.(mqcontracts.ProjectStatusChangedPayload)
	assert.Equal(t, "postponed", changed.From)
	assert.Equal(t, "ongoing", changed.To)
	assert.False(t, changed.Automatic)
}

func TestLifecycle_InvalidTransitionSavesNothing(t *testing.T) {
	svc, store, _ := newTestService()
	p := startedProject(t, svc)
	before := string(store.docs[p.ID])
	saves, events := store.saves, len(store.events)

	_, err := svc.Resume(context.Background(), contractor, p.ID)
	assert.ErrorIs(t, err, progress.ErrInvalidTransition)
	_, err = svc.Start(context.Background(), contractor, p.ID)
	assert.ErrorIs(t, err, progress.ErrInvalidTransition)

	assert.Equal(t, before, string(store.docs[p.ID]))
	assert.Equal(t, saves, store.saves)
	assert.Len(t, store.events, events)
}

func TestLifecycle_EndAndRestart(t *testing.T) {
	svc, _, c := newTestService()
	p := startedProject(t, svc)

	c.setDay(20)
	got, err := svc.End(context.Background(), owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinished, got.Status)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, c.now, *got.EndDate)

	c.setDay(30)
	got, err = svc.Start(context.Background(), contractor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOngoing, got.Status)
	assert.Nil(t, got.EndDate)
	assert.Equal(t, c.now, *got.StartDate)
	assert.Equal(t, 0, got.Progress.Value())
}

func TestSetStatus_FinishedPinsEverythingAt100(t *testing.T) {
	svc, store, c := newTestService()
	p := startedProject(t, svc)

	c.setDay(25)
	got, err := svc.SetStatus(context.Background(), owner, p.ID, model.StatusFinished)
	require.NoError(t, err)

	assert.Equal(t, model.StatusFinished, got.Status)
	assert.Equal(t, model.Auto(100), got.Progress)
	for _, f := range got.Floors {
		assert.Equal(t, model.Manual(100), f.Progress)
		for _, task := range f.Tasks {
			assert.Equal(t, model.Manual(100), task.Progress)
		}
	}

	changed := store.lastEvent(t, mqcontracts.RoutingProjectStatusChanged).Payload.(mqcontracts.ProjectStatusChangedPayload)
	assert.Equal(t, "ongoing", changed.From)
	assert.Equal(t, "finished", changed.To)

	c.setDay(40)
	got, err = svc.Get(context.Background(), owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Auto(100), got.Progress, "a finished project stays at 100")
}

func TestSetStatus_PostponedPinsThenOngoingResumes(t *testing.T) {
	svc, _, c := newTestService()
	p := startedProject(t, svc)

	c.setDay(25)
	got, err := svc.SetStatus(context.Background(), contractor, p.ID, model.StatusPostponed)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPostponed, got.Status)
	assert.Equal(t, model.Manual(100), got.Floors[0].Progress)
	assert.Equal(t, model.Manual(21), got.Floors[1].Progress)
	assert.Equal(t, model.Manual(0), got.Floors[2].Progress)

	c.setDay(30)
	got, err = svc.SetStatus(context.Background(), contractor, p.ID, model.StatusOngoing)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOngoing, got.Status)
	assert.Equal(t, 3, got.Timeline.Duration)
	assert.Equal(t, model.Manual(21), got.Floors[1].Progress, "pins from the cascade stay")

	// Already ongoing: nothing to do.
	_, err = svc.SetStatus(context.Background(), contractor, p.ID, model.StatusOngoing)
	require.NoError(t, err)
}

func TestSetStatus_OngoingStartsNotStarted(t *testing.T) {
	svc, _, _ := newTestService()
	p, err := svc.Create(context.Background(), contractor, sampleRequest())
	require.NoError(t, err)

	got, err := svc.SetStatus(context.Background(), contractor, p.ID, model.StatusOngoing)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOngoing, got.Status)
	assert.NotNil(t, got.StartDate)
}

func TestSetStatus_Rejected(t *testing.T) {
	svc, _, _ := newTestService()
	p := startedProject(t, svc)

	_, err := svc.SetStatus(context.Background(), contractor, p.ID, model.StatusNotStarted)
	assert.ErrorIs(t, err, progress.ErrValidation)
	_, err = svc.SetStatus(context.Background(), contractor, p.ID, "cancelled")
	assert.ErrorIs(t, err, progress.ErrValidation)
}

func TestRecompute_AutoFinish(t *testing.T) {
	svc, store, c := newTestService()
	p := startedProject(t, svc)

	c.setDay(60)
	outcome, err := svc.Recompute(context.Background(), p.ID, TriggerSweep)
	require.NoError(t, err)
	assert.Equal(t, OutcomeChanged, outcome)

	got, err := store.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinished, got.Status)
	assert.Equal(t, model.Auto(100), got.Progress)
	for _, f := range got.Floors {
		assert.Equal(t, 100, f.Progress.Value())
		for _, task := range f.Tasks {
			assert.Equal(t, 100, task.Progress.Value())
		}
	}

	changed := store.lastEvent(t, mqcontracts.RoutingProjectStatusChanged).Payload.(mqcontracts.ProjectStatusChangedPayload)
	assert.True(t, changed.Automatic)
	assert.Equal(t, "finished", changed.To)
	assert.Equal(t, 100, changed.Progress)

	outcome, err = svc.Recompute(context.Background(), p.ID, TriggerSweep)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome, "finished projects keep computing but nothing moves")

	ids, err := svc.OngoingIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRecompute_UnknownProject(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Recompute(context.Background(), 9, TriggerRequest)
	assert.ErrorIs(t, err, progress.ErrNotFound)
}
