// scrape-prices runs one price scrape against the catalog and stores the
// results in the tracker database. Only codes whose price is missing or older
// than the TTL are fetched.
//
// Usage: scrape-prices [-catalog <path|url>] [-db <path>] [-ttl 24h]
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/codyseavey/optcg-tracker/internal/config"
	"github.com/codyseavey/optcg-tracker/internal/database"
	"github.com/codyseavey/optcg-tracker/internal/logging"
	"github.com/codyseavey/optcg-tracker/internal/services"
)

func main() {
	log := logging.NewDevelopment()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	catalogPath := flag.String("catalog", cfg.CatalogPath, "Catalog artifact path or URL")
	dbPath := flag.String("db", cfg.DBPath, "Path to SQLite database")
	ttl := flag.Duration("ttl", cfg.Scraper.TTL, "Refetch prices older than this")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(*dbPath, log)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	store := database.NewStore(db)

	catalogService := services.NewCatalogService(*catalogPath, log)
	if _, err := catalogService.Load(ctx); err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	fetcher := services.NewChromeFetcher(cfg.Scraper.UserAgent, cfg.Scraper.PageTimeout)
	defer fetcher.Close()

	worker := services.NewScrapeWorker(
		catalogService,
		services.NewPriceService(store, log),
		services.NewPriceScraper(fetcher, cfg.Scraper),
		*ttl,
		log,
	)
	status, err := worker.Run(ctx)
	if err != nil {
		log.Errorf("Price scrape stopped early: %v", err)
	}
	log.Infof("Processed %d of %d queued codes: %d ok, %d failed", status.Processed, status.Queued, status.Succeeded, status.Failed)
	if err != nil {
		os.Exit(1)
	}
}
