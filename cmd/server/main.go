package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/codyseavey/optcg-tracker/internal/api"
	"github.com/codyseavey/optcg-tracker/internal/config"
	"github.com/codyseavey/optcg-tracker/internal/database"
	"github.com/codyseavey/optcg-tracker/internal/logging"
	"github.com/codyseavey/optcg-tracker/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	// Initialize database
	if err := database.Initialize(cfg.DBPath, logger); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	store := database.NewStore(database.GetDB())

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	catalogService := services.NewCatalogService(cfg.CatalogPath, logger)
	if cat, err := catalogService.Load(ctx); err != nil {
		// the catalog is retried on the next request
		logger.Warnf("Catalog not loaded at startup: %v", err)
	} else {
		logger.Infof("Loaded %d catalog entries from %s", cat.Len(), cfg.CatalogPath)
	}

	collectionService := services.NewCollectionService(store, catalogService, logger)
	if _, err := collectionService.EnsureDefaultCollection(ctx); err != nil {
		logger.Fatalf("Failed to bootstrap collections: %v", err)
	}
	priceService := services.NewPriceService(store, logger)
	snapshotService := services.NewSnapshotService(store, collectionService, logger)

	scheduler := cron.New()
	if err := snapshotService.Schedule(ctx, scheduler, cfg.SnapshotSchedule); err != nil {
		logger.Fatalf("Failed to schedule snapshots: %v", err)
	}

	var scrapeWorker *services.ScrapeWorker
	if cfg.Scraper.Enabled {
		fetcher := services.NewChromeFetcher(cfg.Scraper.UserAgent, cfg.Scraper.PageTimeout)
		defer fetcher.Close()
		scraper := services.NewPriceScraper(fetcher, cfg.Scraper)
		scrapeWorker = services.NewScrapeWorker(catalogService, priceService, scraper, cfg.Scraper.TTL, logger)
		if err := scrapeWorker.Schedule(ctx, scheduler, cfg.Scraper.Schedule); err != nil {
			logger.Fatalf("Failed to schedule price scrapes: %v", err)
		}
	} else {
		logger.Info("Price scraping disabled")
	}
	scheduler.Start()

	// Setup router
	router := api.SetupRouter(cfg, api.Services{
		Context:      ctx,
		Catalog:      catalogService,
		Collections:  collectionService,
		Prices:       priceService,
		Snapshots:    snapshotService,
		ScrapeWorker: scrapeWorker,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Stop scheduled jobs and any running scrape
	cancel()
	<-scheduler.Stop().Done()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
