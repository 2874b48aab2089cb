package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cognicore/citepipe/pkg/citepipe"
	"github.com/cognicore/citepipe/pkg/citepipe/config"
	"github.com/cognicore/citepipe/pkg/citepipe/index"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file (required)")
		xmlDir     = flag.String("xml", "", "Override the XML input directory")
		txtDir     = flag.String("txt", "", "Override the plain-text output directory")
		dbPath     = flag.String("db", "", "Override the database path")
		workers    = flag.Int("workers", 0, "Override the worker count")
	)
	flag.Parse()

	if *configPath == "" {
		log.Fatal("--config required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if *xmlDir != "" {
		cfg.XMLDir = *xmlDir
	}
	if *txtDir != "" {
		cfg.TxtDir = *txtDir
	}
	if *dbPath != "" {
		cfg.DB = *dbPath
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var idx index.Indexer
	if cfg.IndexDB != "" {
		idx, err = index.Open(ctx, cfg.IndexDB)
		if err != nil {
			log.Fatal("Failed to open index:", err)
		}
		defer idx.Close()
	}

	imp, err := citepipe.New(citepipe.Options{
		Config:  cfg,
		Indexer: idx,
	})
	if err != nil {
		log.Fatal("Failed to set up importer:", err)
	}

	run, err := imp.Run(ctx)
	if err != nil {
		log.Fatal("Import failed:", err)
	}
	log.Printf("Imported %d files (%d failed) in %s", run.Files, run.Failed, run.Finished.Sub(run.Started))
}
