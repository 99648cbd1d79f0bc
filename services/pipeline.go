package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/media2net/marktplaats-poster/config"
	"github.com/media2net/marktplaats-poster/models"
	"github.com/media2net/marktplaats-poster/storage"
)

const resultsFile = "post_results.csv"

// Pipeline runs one batch end to end: post every product, persist the
// results, print the report.
type Pipeline struct {
	cfg  *config.Config
	orch *Orchestrator
	log  *zap.Logger
}

func NewPipeline(cfg *config.Config, page PagePoster, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:  cfg,
		orch: NewOrchestrator(page, logger),
		log:  logger.Named("pipeline"),
	}
}

// Execute posts the products and persists the batch outcome. Persistence
// problems are logged but do not fail the batch; the ads are already live.
func (p *Pipeline) Execute(ctx context.Context, products []models.Product, productID string) []models.PostResult {
	runID := uuid.NewString()
	p.log.Info("batch starting", zap.String("run_id", runID), zap.Int("products", len(products)))

	results := p.orch.Run(ctx, products, productID)
	if len(results) == 0 {
		return results
	}

	if err := p.saveToCSV(results); err != nil {
		p.log.Error("saving results failed", zap.Error(err))
	}
	if p.cfg.DBConfig.Enabled {
		if err := p.archive(runID, results); err != nil {
			p.log.Error("archiving results failed", zap.Error(err))
		}
	}

	NewSummaryGenerator().PrintReport(runID, results)
	return results
}

func (p *Pipeline) saveToCSV(results []models.PostResult) error {
	writer := storage.NewResultsWriter(resultsFile)
	if err := writer.WriteResults(results); err != nil {
		return err
	}
	p.log.Info("results saved", zap.String("file", resultsFile))
	return nil
}

func (p *Pipeline) archive(runID string, results []models.PostResult) error {
	archive, err := storage.NewPostgresArchive(
		p.cfg.DBConfig.Host,
		p.cfg.DBConfig.Port,
		p.cfg.DBConfig.User,
		p.cfg.DBConfig.Password,
		p.cfg.DBConfig.DBName,
	)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer archive.Close()

	if err := archive.CreateTable(); err != nil {
		return fmt.Errorf("table creation failed: %w", err)
	}
	if err := archive.InsertResults(runID, results); err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}
	p.log.Info("results archived", zap.String("run_id", runID), zap.Int("rows", len(results)))
	return nil
}
