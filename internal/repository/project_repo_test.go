package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitetrack/internal/model"
)

func TestDecodeProject(t *testing.T) {
	doc := []byte(`{"id":0,"name":"Depot","status":"ongoing","progress":{"value":30,"is_manual":true},
		"floors":[{"id":"f0","name":"Ground","progress":{"value":55,"is_manual":false},"tasks":[]}]}`)

	p, err := decodeProject(12, doc)
	require.NoError(t, err)
	assert.Equal(t, int64(12), p.ID, "the row id wins over the document")
	assert.Equal(t, model.StatusOngoing, p.Status)
	assert.Equal(t, model.Manual(30), p.Progress)
	require.Len(t, p.Floors, 1)
	assert.Equal(t, model.Auto(55), p.Floors[0].Progress)
}

func TestDecodeProject_Corrupt(t *testing.T) {
	_, err := decodeProject(3, []byte(`{"floors":`))
	assert.ErrorContains(t, err, "failed to decode project 3")
}
