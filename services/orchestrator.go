package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/media2net/marktplaats-poster/models"
)

// PagePoster is the step sequence for placing one ad. The browser-backed
// implementation lives in the poster package; tests substitute fakes.
type PagePoster interface {
	EnsureLoggedIn(ctx context.Context) error
	OpenListingForm(ctx context.Context) error
	SelectCategory(ctx context.Context, product models.Product) error
	FillFields(ctx context.Context, product models.Product) error
	UploadPhotos(ctx context.Context, product models.Product) error
	SelectFreeTier(ctx context.Context) error
	Publish(ctx context.Context) (string, error)
	ScrapeStats(ctx context.Context, adURL string) (models.AdStats, error)
}

// Orchestrator walks every product through the posting steps. One product
// failing, however badly, never takes the rest of the batch down with it.
type Orchestrator struct {
	page PagePoster
	log  *zap.Logger
}

func NewOrchestrator(page PagePoster, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{page: page, log: logger.Named("orchestrator")}
}

// Run posts the given products sequentially and returns one result per
// attempted product. When productID is non-empty only the matching product
// (by article number, else the first) is attempted. Context cancellation
// stops the batch; products already attempted keep their results.
func (o *Orchestrator) Run(ctx context.Context, products []models.Product, productID string) []models.PostResult {
	if len(products) == 0 {
		o.log.Info("nothing to post")
		return nil
	}
	if productID != "" {
		products = []models.Product{selectProduct(products, productID)}
	}

	if err := o.page.EnsureLoggedIn(ctx); err != nil {
		o.log.Error("session check failed", zap.Error(err))
		results := make([]models.PostResult, 0, len(products))
		for _, p := range products {
			results = append(results, failedResult(p, fmt.Errorf("session check: %w", err)))
		}
		return results
	}

	results := make([]models.PostResult, 0, len(products))
	for i, p := range products {
		if ctx.Err() != nil {
			o.log.Warn("batch cancelled", zap.Int("remaining", len(products)-i))
			break
		}
		o.log.Info("posting product",
			zap.Int("index", i+1),
			zap.Int("total", len(products)),
			zap.String("title", p.Title),
			zap.String("article", p.ArticleNumber))
		results = append(results, o.postOne(ctx, p))
	}
	return results
}

// selectProduct picks the product for single-product mode.
func selectProduct(products []models.Product, productID string) models.Product {
	for _, p := range products {
		if p.ArticleNumber == productID {
			return p
		}
	}
	return products[0]
}

// postOne runs one product through the full step sequence. Panics from the
// browser layer become failed results so the batch keeps moving.
func (o *Orchestrator) postOne(ctx context.Context, p models.Product) (result models.PostResult) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("panic while posting", zap.String("title", p.Title), zap.Any("panic", r))
			result = failedResult(p, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := o.page.OpenListingForm(ctx); err != nil {
		return failedResult(p, fmt.Errorf("open form: %w", err))
	}
	if err := o.page.SelectCategory(ctx, p); err != nil {
		// A missed category is recoverable: the form may still be usable
		// with the site's own suggestion.
		o.log.Warn("category selection incomplete", zap.String("title", p.Title), zap.Error(err))
	}
	if err := o.page.FillFields(ctx, p); err != nil {
		return failedResult(p, fmt.Errorf("fill fields: %w", err))
	}
	if err := o.page.UploadPhotos(ctx, p); err != nil {
		o.log.Warn("photo upload incomplete", zap.String("title", p.Title), zap.Error(err))
	}
	if err := o.page.SelectFreeTier(ctx); err != nil {
		o.log.Warn("bundle selection incomplete", zap.String("title", p.Title), zap.Error(err))
	}

	adURL, err := o.page.Publish(ctx)
	if err != nil {
		return failedResult(p, fmt.Errorf("publish: %w", err))
	}
	if adURL == "" {
		return failedResult(p, fmt.Errorf("ad url not found after publish"))
	}

	result = models.PostResult{
		ArticleNumber: p.ArticleNumber,
		Title:         p.Title,
		Status:        models.StatusCompleted,
		AdURL:         adURL,
	}
	stats, err := o.page.ScrapeStats(ctx, adURL)
	if err != nil {
		// The ad is live either way.
		o.log.Warn("stats scrape failed", zap.String("ad_url", adURL), zap.Error(err))
		return result
	}
	result.AdID = stats.AdID
	result.Views = stats.Views
	result.Saves = stats.Saves
	result.PostedAt = stats.PostedAt
	return result
}

func failedResult(p models.Product, err error) models.PostResult {
	return models.PostResult{
		ArticleNumber: p.ArticleNumber,
		Title:         p.Title,
		Status:        models.StatusFailed,
		Error:         err.Error(),
	}
}
