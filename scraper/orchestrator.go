package scraper

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"vavato_scrooper/config"
	"vavato_scrooper/models"
)

// RunStore records runs and their log lines.
type RunStore interface {
	CreateRun(run *models.ScrapeRun) (int64, error)
	UpdateRun(run *models.ScrapeRun) error
	Log(runID *int64, level models.LogLevel, message, siteID string) error
}

// Exporter writes the tables of a finished run and returns where they went.
type Exporter interface {
	Export(ctx context.Context, runID string, res *models.Result) (string, error)
}

var (
	openStatuses   = []models.AuctionStatus{models.AuctionStatusOpen, models.AuctionStatusFuture}
	closedStatuses = []models.AuctionStatus{models.AuctionStatusClosed}
)

type Orchestrator struct {
	cfg        *config.Config
	transport  Transport
	store      RunStore
	exporter   Exporter
	newHandler HandlerFactory
	sleep      SleepFunc

	mu sync.Mutex
}

func NewOrchestrator(cfg *config.Config, transport Transport) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		transport:  transport,
		newHandler: NewHandler,
	}
}

// SetStore attaches the run ledger. Without one, runs are only logged.
func (o *Orchestrator) SetStore(store RunStore) {
	o.store = store
}

func (o *Orchestrator) SetExporter(exporter Exporter) {
	o.exporter = exporter
}

// SetSleep replaces the wait used for request delays and backoff.
func (o *Orchestrator) SetSleep(sleep SleepFunc) {
	o.sleep = sleep
}

// Run performs one full pass: open and closed auctions first, then the lots
// of every auction found, then the export. Each run starts with a fresh
// backoff interval. A fatal error aborts the run before anything is
// exported.
func (o *Orchestrator) Run(ctx context.Context) (*models.Result, error) {
	if !o.mu.TryLock() {
		return nil, fmt.Errorf("a run is already in progress")
	}
	defer o.mu.Unlock()

	site := &o.cfg.Site
	run := &models.ScrapeRun{
		RunID:     uuid.NewString(),
		SiteID:    site.ID,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	if o.store != nil {
		id, err := o.store.CreateRun(run)
		if err != nil {
			log.Printf("%s %s: failed to create run: %v", models.LogLevelWarn.Tag(), site.ID, err)
		} else {
			run.ID = id
		}
	}

	o.log(run, models.LogLevelInfo, fmt.Sprintf("Starting scrape for %s (run %s)", site.Name, run.RunID))

	stats := &RunStats{}
	fetcher := NewFetcher(o.transport, NewRetryState(o.cfg.Scraper.RetryDelay()), FetcherOptions{
		Delay:       o.cfg.Scraper.Delay(),
		MaxRetries:  o.cfg.Scraper.MaxRetries,
		BlockMarker: site.BlockMarker,
		Sleep:       o.sleep,
	})
	norm := Normalizer{
		BaseURL:         site.BaseURL,
		House:           site.House,
		AllowedPrefixes: site.AllowedPrefixes,
		Location:        o.cfg.Location,
	}
	handler := o.newHandler(site, fetcher, norm, stats)

	defer func() {
		now := time.Now()
		run.FinishedAt = &now
		run.PagesFetched = stats.PagesFetched
		run.PagesFailed = stats.PagesFailed
		if o.store != nil && run.ID != 0 {
			if err := o.store.UpdateRun(run); err != nil {
				log.Printf("%s %s: failed to update run: %v", models.LogLevelWarn.Tag(), site.ID, err)
			}
		}
	}()

	res, err := o.scrape(ctx, handler)
	run.Count(res)
	if err != nil {
		run.Status = models.RunStatusFailed
		o.log(run, models.LogLevelError, fmt.Sprintf("Scrape aborted: %v", err))
		return res, err
	}

	if o.exporter != nil {
		path, err := o.exporter.Export(ctx, run.RunID, res)
		if err != nil {
			run.Status = models.RunStatusFailed
			o.log(run, models.LogLevelError, fmt.Sprintf("Export failed: %v", err))
			return res, fmt.Errorf("export: %w", err)
		}
		run.OutputPath = path
	}

	run.Status = models.RunStatusCompleted
	o.log(run, models.LogLevelInfo,
		fmt.Sprintf("Completed: %d open auctions, %d closed auctions, %d open lots, %d closed lots, %d failed pages",
			run.OpenAuctions, run.ClosedAuctions, run.OpenAuctionLots, run.ClosedAuctionLots, stats.PagesFailed))

	return res, nil
}

// scrape runs the two phases in order. Every listing is fully materialized
// before the next one starts.
func (o *Orchestrator) scrape(ctx context.Context, h Handler) (*models.Result, error) {
	res := &models.Result{}
	var err error

	if res.OpenAuctions, err = h.ScrapeAuctions(ctx, openStatuses); err != nil {
		return res, err
	}
	if res.ClosedAuctions, err = h.ScrapeAuctions(ctx, closedStatuses); err != nil {
		return res, err
	}
	if res.OpenAuctionLots, err = h.ScrapeLotsOfAuctions(ctx, res.OpenAuctions); err != nil {
		return res, err
	}
	if res.ClosedAuctionLots, err = h.ScrapeLotsOfAuctions(ctx, res.ClosedAuctions); err != nil {
		return res, err
	}
	return res, nil
}

func (o *Orchestrator) log(run *models.ScrapeRun, level models.LogLevel, message string) {
	log.Printf("%s %s: %s", level.Tag(), run.SiteID, message)
	if o.store == nil {
		return
	}
	var runID *int64
	if run.ID != 0 {
		runID = &run.ID
	}
	if err := o.store.Log(runID, level, message, run.SiteID); err != nil {
		log.Printf("%s %s: failed to persist log line: %v", models.LogLevelWarn.Tag(), run.SiteID, err)
	}
}
