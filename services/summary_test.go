package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/media2net/marktplaats-poster/models"
)

func TestSummaryGenerate(t *testing.T) {
	results := []models.PostResult{
		{Title: "a", Status: models.StatusCompleted, Views: 10, Saves: 2},
		{Title: "b", Status: models.StatusFailed, Error: "publish: rejected"},
		{Title: "c", Status: models.StatusCompleted, Views: 5, Saves: 1},
	}

	s := NewSummaryGenerator().Generate(results)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 15, s.TotalViews)
	assert.Equal(t, 3, s.TotalSaves)
	require.Len(t, s.Failures, 1)
	assert.Equal(t, "publish: rejected", s.Failures[0].Error)
}

func TestSummaryGenerateKeepsDuplicateTitles(t *testing.T) {
	results := []models.PostResult{
		{Title: "same", Status: models.StatusFailed, Error: "first"},
		{Title: "same", Status: models.StatusFailed, Error: "second"},
	}

	s := NewSummaryGenerator().Generate(results)
	require.Len(t, s.Failures, 2)
	assert.Equal(t, "first", s.Failures[0].Error)
	assert.Equal(t, "second", s.Failures[1].Error)
}

func TestSummaryGenerateEmpty(t *testing.T) {
	s := NewSummaryGenerator().Generate(nil)
	assert.Zero(t, s.Total)
	assert.Empty(t, s.Failures)
}
