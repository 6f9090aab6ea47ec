package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/pugtube/pugtube/internal"
)

// main is the entry point for the PugTube server. It loads the user
// configuration, constructs the top-level service composition and runs
// it until interrupted.
func main() {
	configPath := flag.String("config", internal.DefaultConfigPath(), "path to the YAML configuration file")
	flag.Parse()

	config := internal.PugTubeConfig{}
	if err := config.LoadFromFile(*configPath); err != nil {
		log.Panicf("Failed to load configuration - %v\n", err.Error())
	}

	pt, err := internal.New(config)
	if err != nil {
		log.Panicf("Failed to initialise PugTube - %v\n", err.Error())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := pt.Run(ctx); err != nil {
		log.Panicf("PugTube stopped with error - %v\n", err.Error())
	}
}
