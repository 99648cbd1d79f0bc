package services

import (
	"fmt"
	"strings"

	"github.com/media2net/marktplaats-poster/models"
)

type Summary struct {
	Total      int
	Completed  int
	Failed     int
	TotalViews int
	TotalSaves int
	Failures   []models.PostResult
}

type SummaryGenerator struct{}

func NewSummaryGenerator() *SummaryGenerator {
	return &SummaryGenerator{}
}

func (sg *SummaryGenerator) Generate(results []models.PostResult) Summary {
	summary := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case models.StatusCompleted:
			summary.Completed++
			summary.TotalViews += r.Views
			summary.TotalSaves += r.Saves
		case models.StatusFailed:
			summary.Failed++
			summary.Failures = append(summary.Failures, r)
		}
	}
	return summary
}

func (sg *SummaryGenerator) PrintReport(runID string, results []models.PostResult) {
	summary := sg.Generate(results)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("BATCH RESULT")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf("\nRun: %s\n", runID)
	fmt.Printf("Products attempted: %d\n", summary.Total)
	fmt.Printf("Completed: %d\n", summary.Completed)
	fmt.Printf("Failed: %d\n", summary.Failed)

	if summary.Completed > 0 {
		fmt.Printf("\nTotal views: %d\n", summary.TotalViews)
		fmt.Printf("Total saves: %d\n", summary.TotalSaves)
		fmt.Println("\nPublished ads:")
		for _, r := range results {
			if r.Status == models.StatusCompleted {
				fmt.Printf("  %s: %s\n", r.Title, r.AdURL)
			}
		}
	}

	if summary.Failed > 0 {
		fmt.Println("\nFailures:")
		for _, r := range summary.Failures {
			fmt.Printf("  %s: %s\n", r.Title, r.Error)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
}
