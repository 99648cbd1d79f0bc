package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/media2net/marktplaats-poster/models"
)

func TestResultsWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	results := []models.PostResult{
		{ArticleNumber: "ART-1", Title: "A", Status: models.StatusCompleted, AdURL: "https://www.marktplaats.nl/a111-a", AdID: "a111", Views: 4, Saves: 1, PostedAt: "vandaag"},
		{ArticleNumber: "ART-2", Title: "B", Status: models.StatusFailed, Error: "publish: rejected"},
	}

	require.NoError(t, NewResultsWriter(path).WriteResults(results))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "ArticleNumber", records[0][0])
	assert.Equal(t, []string{"ART-1", "A", "completed", "https://www.marktplaats.nl/a111-a", "a111", "4", "1", "vandaag", ""}, records[1])
	assert.Equal(t, "publish: rejected", records[2][8])
}
