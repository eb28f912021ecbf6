// build-catalog writes the canonical card catalog artifact, either from a
// local vendor export tree or from the online card API.
//
// Usage:
//
//	build-catalog -src vendor/vega_out -lang english -out catalog/onepiece_cards.json
//	build-catalog -online -out catalog/onepiece_cards.json
//
// The three positional arguments <src> <lang> <out> are accepted as well.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/optcg-tracker/internal/catalog"
	"github.com/codyseavey/optcg-tracker/internal/config"
	"github.com/codyseavey/optcg-tracker/internal/logging"
	"github.com/codyseavey/optcg-tracker/internal/models"
)

func main() {
	defaults := config.Default()

	src := flag.String("src", "", "Root of the vendor export tree")
	lang := flag.String("lang", "english", "Language directory to read (e.g. english, japanese)")
	out := flag.String("out", defaults.CatalogPath, "Output catalog file")
	online := flag.Bool("online", false, "Build from the online card API instead of a local tree")
	baseURL := flag.String("base-url", defaults.Online.BaseURL, "Card API base URL (with -online)")
	rps := flag.Float64("rps", defaults.Online.RequestsPerSec, "Card API requests per second (with -online)")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if args := flag.Args(); len(args) == 3 {
		*src, *lang, *out = args[0], args[1], args[2]
	}

	log := logging.New("info")
	if *verbose {
		log = logging.New("debug")
	}
	defer func() { _ = log.Sync() }()

	var (
		entries []models.CatalogEntry
		err     error
	)
	if *online {
		entries, err = buildOnline(*baseURL, *rps, log)
	} else {
		if *src == "" {
			fmt.Fprintln(os.Stderr, "Usage: build-catalog -src <root> -lang <language> -out <file>  (or -online -out <file>)")
			os.Exit(2)
		}
		entries, err = buildLocal(*src, *lang, log)
	}
	if err != nil {
		var layoutErr *catalog.LayoutError
		if errors.As(err, &layoutErr) {
			fmt.Fprintln(os.Stderr, layoutErr.Error())
			fmt.Fprintln(os.Stderr, "Try one of: vendor/punk-records, vendor/vegapull-records, vendor/vega_out (with data-*-<lang>/json/cards_*.json)")
			os.Exit(1)
		}
		log.Fatalf("Catalog build failed: %v", err)
	}

	if err := catalog.WriteArtifact(*out, entries); err != nil {
		log.Fatalf("Failed to write catalog: %v", err)
	}
	log.Infof("Wrote %d cards to %s", len(entries), *out)
}

func buildLocal(src, lang string, log *zap.SugaredLogger) ([]models.CatalogEntry, error) {
	result, err := catalog.NewBuilder(log).Build(src, lang)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Layout: %s\n", result.Layout.Kind)
	fmt.Printf("Cards dir: %s\n", result.Layout.CardsDir)
	if result.Layout.PacksPath != "" {
		fmt.Printf("Packs: %s\n", result.Layout.PacksPath)
	} else {
		fmt.Println("Packs: (none)")
	}
	fmt.Printf("Found %d json files, %d parse errors\n", result.Files, result.ParseErrors)
	return result.Entries, nil
}

func buildOnline(baseURL string, rps float64, log *zap.SugaredLogger) ([]models.CatalogEntry, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	result, err := catalog.NewOnlineBuilder(baseURL, rps, log).Build(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Fetched %d raw records", result.RawRecords)
	if len(result.FailedSources) > 0 {
		fmt.Printf(" (failed: %v)", result.FailedSources)
	}
	fmt.Println()
	return result.Entries, nil
}
