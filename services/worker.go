package services

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/media2net/marktplaats-poster/api"
	"github.com/media2net/marktplaats-poster/config"
	"github.com/media2net/marktplaats-poster/models"
)

const maxConsecutiveErrors = 5

// Worker polls the backend for pending products and posts them in batches.
// It keeps running until its context is cancelled.
type Worker struct {
	cfg      *config.Config
	client   *api.Client
	pipeline *Pipeline
	log      *zap.Logger
}

func NewWorker(cfg *config.Config, client *api.Client, pipeline *Pipeline, logger *zap.Logger) *Worker {
	return &Worker{
		cfg:      cfg,
		client:   client,
		pipeline: pipeline,
		log:      logger.Named("worker"),
	}
}

// Run loops: fetch pending, post, report. After too many consecutive fetch
// or report errors the wait doubles until a cycle succeeds again.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started", zap.Duration("interval", w.cfg.CheckInterval))

	consecutiveErrors := 0
	for {
		if err := w.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			consecutiveErrors++
			w.log.Error("cycle failed", zap.Int("consecutive", consecutiveErrors), zap.Error(err))
		} else {
			consecutiveErrors = 0
		}

		wait := w.cfg.CheckInterval
		if consecutiveErrors >= maxConsecutiveErrors {
			wait *= 2
			w.log.Warn("backing off", zap.Duration("wait", wait))
		}

		select {
		case <-ctx.Done():
			w.log.Info("worker stopping")
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (w *Worker) cycle(ctx context.Context) error {
	pending, err := w.client.FetchPending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		w.log.Info("no pending products")
		return nil
	}

	products, cleanup := w.materialize(ctx, pending)
	defer cleanup()

	results := w.pipeline.Execute(ctx, products, "")
	if len(results) == 0 {
		return ctx.Err()
	}
	return w.client.BatchUpdate(ctx, pending, results)
}

// materialize converts backend products to post inputs, downloading remote
// images for products that ship without local photo paths. The returned
// cleanup removes any temp directories created for downloads.
func (w *Worker) materialize(ctx context.Context, pending []api.PendingProduct) ([]models.Product, func()) {
	products := make([]models.Product, 0, len(pending))
	var tempDirs []string

	for _, pp := range pending {
		p := pp.ToProduct()
		if len(p.Photos) == 0 && pp.ID != "" {
			if photos := w.fetchRemotePhotos(ctx, pp, &tempDirs); len(photos) > 0 {
				p.Photos = photos
			}
		}
		products = append(products, p)
	}

	cleanup := func() {
		for _, dir := range tempDirs {
			os.RemoveAll(dir)
		}
	}
	return products, cleanup
}

func (w *Worker) fetchRemotePhotos(ctx context.Context, pp api.PendingProduct, tempDirs *[]string) []string {
	urls, err := w.client.FetchImages(ctx, pp.ID)
	if err != nil {
		w.log.Warn("image list fetch failed", zap.String("product", pp.ID), zap.Error(err))
		return nil
	}
	if len(urls) == 0 {
		return nil
	}
	dir, err := os.MkdirTemp("", "mp-images-")
	if err != nil {
		w.log.Warn("temp dir for images failed", zap.Error(err))
		return nil
	}
	*tempDirs = append(*tempDirs, dir)
	return w.client.DownloadImages(ctx, dir, pp.ArticleNumber, urls)
}
