package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pugtube/pugtube/internal"
	"github.com/pugtube/pugtube/internal/catalog"
)

// main runs a single ingestion batch against the popular videos listing
// and reports the outcome of each candidate before exiting. Partial
// failures are reported but do not affect the exit status.
func main() {
	configPath := flag.String("config", internal.DefaultConfigPath(), "path to the YAML configuration file")
	quantity := flag.Int("quantity", catalog.DefaultQuantity, "number of candidate videos to request")
	minDuration := flag.Int("min_duration", catalog.DefaultMinDuration, "minimum candidate duration in seconds")
	maxDuration := flag.Int("max_duration", catalog.DefaultMaxDuration, "maximum candidate duration in seconds")
	flag.Parse()

	config := internal.PugTubeConfig{}
	if err := config.LoadFromFile(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	pt, err := internal.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise PugTube: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := pt.RunBatch(ctx, *quantity, *minDuration, *maxDuration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion batch could not run: %v\n", err)
		os.Exit(1)
	}

	if report.CatalogErr != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch popular videos: %v\n", report.CatalogErr)
		return
	}

	for _, outcome := range report.Outcomes {
		if outcome.Succeeded() {
			fmt.Printf("Ingested video %d as %s\n", outcome.CandidateID, outcome.AssetID)
		} else {
			fmt.Fprintf(os.Stderr, "Failed to ingest %s: %v\n", outcome.FailedURL, outcome.Err)
		}
	}

	fmt.Printf("Batch complete: %d succeeded, %d failed\n", report.SucceededCount(), report.FailedCount())
}
