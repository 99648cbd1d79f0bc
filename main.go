package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/media2net/marktplaats-poster/api"
	"github.com/media2net/marktplaats-poster/config"
	"github.com/media2net/marktplaats-poster/models"
	"github.com/media2net/marktplaats-poster/poster"
	"github.com/media2net/marktplaats-poster/services"
	"github.com/media2net/marktplaats-poster/storage"
	"github.com/media2net/marktplaats-poster/utils"
)

func main() {
	csvFile := flag.String("csv", "", "post products from a CSV file")
	useAPI := flag.Bool("api", false, "post pending products from the backend API once")
	productID := flag.String("product-id", "", "post only the product with this article number")
	loginOnly := flag.Bool("login", false, "open the site for a manual login, then exit")
	keepOpen := flag.Bool("keep-open", false, "leave the browser open after the batch")
	worker := flag.Bool("worker", false, "run the polling worker until interrupted")
	flag.Parse()

	cfg := config.Load()

	logger, err := utils.NewLogger(cfg.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *csvFile, *useAPI, *productID, *loginOnly, *keepOpen, *worker); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, csvFile string, useAPI bool, productID string, loginOnly, keepOpen, worker bool) error {
	browser, err := utils.LaunchBrowser(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer browser.Close()

	page := poster.New(cfg, logger)

	if loginOnly {
		return waitForLogin(browser.Ctx, page, logger)
	}

	pipeline := services.NewPipeline(cfg, page, logger)

	if worker {
		client := api.NewClient(cfg.APIBaseURL, cfg.APIKey, logger)
		w := services.NewWorker(cfg, client, pipeline, logger)
		err := w.Run(browser.Ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	var products []models.Product
	var pending []api.PendingProduct
	var client *api.Client

	switch {
	case csvFile != "":
		products, err = storage.ReadProducts(csvFile)
		if err != nil {
			return err
		}
	case useAPI:
		client = api.NewClient(cfg.APIBaseURL, cfg.APIKey, logger)
		pending, err = client.FetchPending(browser.Ctx)
		if err != nil {
			return err
		}
		for _, pp := range pending {
			products = append(products, pp.ToProduct())
		}
	default:
		return fmt.Errorf("nothing to do: pass --csv, --api, --worker or --login")
	}

	results := pipeline.Execute(browser.Ctx, products, productID)

	if client != nil && len(results) > 0 {
		if err := client.BatchUpdate(browser.Ctx, pending, results); err != nil {
			logger.Error("reporting results failed", zap.Error(err))
		}
	}

	if keepOpen {
		logger.Info("batch done, browser stays open until interrupted")
		<-ctx.Done()
	}

	for _, r := range results {
		if r.Status == models.StatusFailed {
			return fmt.Errorf("%d of %d products failed", countFailed(results), len(results))
		}
	}
	return nil
}

func countFailed(results []models.PostResult) int {
	n := 0
	for _, r := range results {
		if r.Status == models.StatusFailed {
			n++
		}
	}
	return n
}

// waitForLogin opens the homepage against the persistent profile and blocks
// until the operator interrupts, leaving the session cookies behind.
func waitForLogin(ctx context.Context, page *poster.Poster, logger *zap.Logger) error {
	if err := page.EnsureLoggedIn(ctx); err != nil {
		return err
	}
	logger.Info("log in manually in the browser window, then press Ctrl+C")
	<-ctx.Done()
	return nil
}
