package scraper

import (
	"context"

	"vavato_scrooper/config"
	"vavato_scrooper/models"
)

// Handler scrapes the two listing kinds of one auction site.
type Handler interface {
	ID() string
	ScrapeAuctions(ctx context.Context, statuses []models.AuctionStatus) ([]models.AuctionRecord, error)
	ScrapeLotsOfAuctions(ctx context.Context, auctions []models.AuctionRecord) ([]models.LotRecord, error)
}

// HandlerFactory builds a handler for a single run around that run's fetcher
// and counters.
type HandlerFactory func(site *config.SiteConfig, fetcher *Fetcher, norm Normalizer, stats *RunStats) Handler

func NewHandler(site *config.SiteConfig, fetcher *Fetcher, norm Normalizer, stats *RunStats) Handler {
	return NewVavatoHandler(site, fetcher, norm, stats)
}
