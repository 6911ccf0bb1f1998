package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress_Clamps(t *testing.T) {
	assert.Equal(t, 0, Auto(-5).Value())
	assert.Equal(t, 100, Manual(140).Value())
	assert.Equal(t, Auto(0), Progress{})
}

func TestProgress_PinAndUnpin(t *testing.T) {
	p := Auto(35).Pinned()
	assert.True(t, p.IsManual())
	assert.Equal(t, 35, p.Value())

	p = p.Unpinned()
	assert.False(t, p.IsManual())
	assert.Equal(t, "35% (auto)", p.String())
}

func TestProgress_JSON(t *testing.T) {
	b, err := json.Marshal(Manual(60))
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":60,"is_manual":true}`, string(b))

	var p Progress
	require.NoError(t, json.Unmarshal([]byte(`{"value":250,"is_manual":false}`), &p))
	assert.Equal(t, Auto(100), p)
}

func TestClone_IsDeep(t *testing.T) {
	start := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	p := &Project{
		StartDate:      &start,
		PostponedDates: []time.Time{start},
		ResumedDates:   []time.Time{},
		Floors: []Floor{
			{ID: "f0", Tasks: []Task{{ID: "t0"}}},
			{ID: "f1", Tasks: []Task{}},
		},
	}

	c := p.Clone()
	assert.Equal(t, p, c)

	c.Floors[0].Tasks[0].Progress = Manual(10)
	c.PostponedDates[0] = start.Add(time.Hour)
	*c.StartDate = start.Add(time.Hour)

	assert.Equal(t, Auto(0), p.Floors[0].Tasks[0].Progress)
	assert.Equal(t, start, p.PostponedDates[0])
	assert.Equal(t, start, *p.StartDate)
	assert.NotNil(t, c.ResumedDates, "empty stays empty")
	assert.Nil(t, (&Project{}).Clone().Floors)
}

func TestPinAll(t *testing.T) {
	p := &Project{Floors: []Floor{{Progress: Auto(40), Tasks: []Task{{Progress: Auto(20)}}}}}

	p.PinAll()
	assert.Equal(t, Manual(40), p.Floors[0].Progress)
	assert.Equal(t, Manual(20), p.Floors[0].Tasks[0].Progress)

	p.PinAllAt(100)
	assert.Equal(t, Manual(100), p.Floors[0].Progress)
	assert.Equal(t, Manual(100), p.Floors[0].Tasks[0].Progress)
}

func TestHasParticipant(t *testing.T) {
	p := &Project{ContractorID: 3, OwnerID: 4}
	assert.True(t, p.HasParticipant(3))
	assert.True(t, p.HasParticipant(4))
	assert.False(t, p.HasParticipant(5))
	assert.False(t, (&Project{}).HasParticipant(0))
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPostponed.Valid())
	assert.False(t, Status("cancelled").Valid())
}
