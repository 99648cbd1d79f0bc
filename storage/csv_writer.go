package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/media2net/marktplaats-poster/models"
)

type ResultsWriter struct {
	filename string
}

func NewResultsWriter(filename string) *ResultsWriter {
	return &ResultsWriter{filename: filename}
}

func (w *ResultsWriter) WriteResults(results []models.PostResult) error {
	file, err := os.Create(w.filename)
	if err != nil {
		return fmt.Errorf("create %s: %w", w.filename, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"ArticleNumber", "Title", "Status", "AdURL", "AdID", "Views", "Saves", "PostedAt", "Error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		record := []string{
			r.ArticleNumber,
			r.Title,
			r.Status,
			r.AdURL,
			r.AdID,
			strconv.Itoa(r.Views),
			strconv.Itoa(r.Saves),
			r.PostedAt,
			r.Error,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}
