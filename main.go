package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"vavato_scrooper/config"
	"vavato_scrooper/export"
	"vavato_scrooper/httputil"
	"vavato_scrooper/logging"
	"vavato_scrooper/scheduler"
	"vavato_scrooper/scraper"
	"vavato_scrooper/storage"
)

var (
	scrapeNow = flag.Bool("scrape", false, "Run scrape once and exit, even if a schedule is configured")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath, logging.DefaultMaxSize)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting vavato_scrooper...")
	log.Printf("Site: %s (%s), %d allowed auction prefixes", cfg.Site.Name, cfg.Site.BaseURL, len(cfg.Site.AllowedPrefixes))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orchestrator := scraper.NewOrchestrator(cfg, httputil.NewClient(&cfg.HTTP))

	if cfg.DBPath != "" {
		store, err := storage.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to open SQLite: %v", err)
		}
		defer store.Close()
		orchestrator.SetStore(store)
		log.Printf("SQLite database: %s", cfg.DBPath)
	}

	exporter := &export.WorkbookExporter{
		Dir:     cfg.Export.Dir,
		Prefix:  cfg.Export.Prefix,
		Summary: os.Stdout,
	}
	if cfg.S3.Enabled() {
		uploader, err := storage.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to set up S3 upload: %v", err)
		}
		exporter.Uploader = uploader
		log.Printf("Uploading workbooks to s3://%s", cfg.S3.Bucket)
	}
	orchestrator.SetExporter(exporter)

	if *scrapeNow || !cfg.Scheduler.Enabled() {
		log.Println("Running scrape...")
		if _, err := orchestrator.Run(ctx); err != nil {
			log.Fatalf("Scrape failed: %v", err)
		}
		log.Println("Scrape complete!")
		return
	}

	// Daemon mode
	sched := scheduler.New(&cfg.Scheduler, orchestrator)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	cancel()
	sched.Stop()
	log.Println("Goodbye!")
}
