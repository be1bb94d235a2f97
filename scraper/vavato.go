package scraper

import (
	"context"
	"encoding/json"
	"fmt"

	"vavato_scrooper/config"
	"vavato_scrooper/logging"
	"vavato_scrooper/models"
)

type VavatoHandler struct {
	site    *config.SiteConfig
	fetcher *Fetcher
	norm    Normalizer
	stats   *RunStats
	locator PayloadLocator
}

func NewVavatoHandler(site *config.SiteConfig, fetcher *Fetcher, norm Normalizer, stats *RunStats) *VavatoHandler {
	return &VavatoHandler{
		site:    site,
		fetcher: fetcher,
		norm:    norm,
		stats:   stats,
		locator: PayloadLocator{
			Start:    site.Payload.StartMarker,
			End:      site.Payload.EndMarker,
			Selector: site.Payload.Selector,
		},
	}
}

func (h *VavatoHandler) ID() string {
	return h.site.ID
}

// AuctionsURL is the first page of the auction listing for statuses.
func (h *VavatoHandler) AuctionsURL(statuses []models.AuctionStatus) string {
	return fmt.Sprintf("%s/en/auctions?auctionBiddingStatuses=%s", h.site.BaseURL, models.StatusQuery(statuses))
}

func (h *VavatoHandler) ScrapeAuctions(ctx context.Context, statuses []models.AuctionStatus) ([]models.AuctionRecord, error) {
	query := models.StatusQuery(statuses)
	logging.Infof("Scraping auctions with statuses %s", query)

	listingURL := h.AuctionsURL(statuses)
	logging.Infof("Getting number of pages")

	first, err := h.fetchAuctionListing(ctx, listingURL)
	if err != nil {
		return nil, h.discoveryFailed(ctx, listingURL, err)
	}
	pages, err := countAuctionPages(first)
	if err != nil {
		return nil, h.discoveryFailed(ctx, listingURL, err)
	}
	logging.Infof("Number of pages: %d", pages)

	pageURL := func(page int) string {
		return models.PageQuery{BaseURL: listingURL, Statuses: statuses, Page: page}.URL()
	}
	auctions, err := collectPages(ctx, pages, pageURL, h.stats, h.scrapeAuctionPage)
	if err != nil {
		return auctions, err
	}

	logging.Infof("Scraped %d auctions with statuses %s", len(auctions), query)
	return auctions, nil
}

func (h *VavatoHandler) scrapeAuctionPage(ctx context.Context, pageURL string, page int) ([]models.AuctionRecord, error) {
	listing, err := h.fetchAuctionListing(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	auctions := h.norm.Auctions(listing.Results)
	logging.Infof("Scraped %d auctions from page %d", len(auctions), page)
	return auctions, nil
}

func (h *VavatoHandler) ScrapeLotsOfAuctions(ctx context.Context, auctions []models.AuctionRecord) ([]models.LotRecord, error) {
	logging.Infof("Scraping lots of %d auctions", len(auctions))

	var lots []models.LotRecord
	for _, auction := range auctions {
		found, err := h.ScrapeLotsOfAuction(ctx, auction.URL)
		lots = append(lots, found...)
		if err != nil {
			return lots, err
		}
	}

	logging.Infof("Scraped %d lots of %d auctions", len(lots), len(auctions))
	return lots, nil
}

func (h *VavatoHandler) ScrapeLotsOfAuction(ctx context.Context, auctionURL string) ([]models.LotRecord, error) {
	logging.Infof("Scraping lots of auction %s", auctionURL)

	first, err := h.fetchLotListing(ctx, auctionURL)
	if err != nil {
		return nil, h.discoveryFailed(ctx, auctionURL, err)
	}
	pages, err := countLotPages(first)
	if err != nil {
		return nil, h.discoveryFailed(ctx, auctionURL, err)
	}

	pageURL := func(page int) string {
		return models.PageQuery{BaseURL: auctionURL, Page: page}.URL()
	}
	scrape := func(ctx context.Context, pageURL string, page int) ([]models.LotRecord, error) {
		listing, err := h.fetchLotListing(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		lots := h.norm.Lots(listing.Results, auctionURL)
		logging.Infof("Scraped %d lots from page %d", len(lots), page)
		return lots, nil
	}

	lots, err := collectPages(ctx, pages, pageURL, h.stats, scrape)
	if err != nil {
		return lots, err
	}

	logging.Infof("Scraped %d lots of auction %s", len(lots), auctionURL)
	return lots, nil
}

func (h *VavatoHandler) fetchAuctionListing(ctx context.Context, url string) (*auctionListing, error) {
	raw, err := h.fetchCollection(ctx, url, h.site.Payload.AuctionsPath)
	if err != nil {
		return nil, err
	}
	return decodeAuctionListing(raw)
}

func (h *VavatoHandler) fetchLotListing(ctx context.Context, url string) (*lotListing, error) {
	raw, err := h.fetchCollection(ctx, url, h.site.Payload.LotsPath)
	if err != nil {
		return nil, err
	}
	return decodeLotListing(raw)
}

func (h *VavatoHandler) fetchCollection(ctx context.Context, url string, keyPath []string) (json.RawMessage, error) {
	html, err := h.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return ExtractCollection(html, h.locator, keyPath...)
}

// discoveryFailed handles a listing whose first page could not be read.
// The listing then contributes nothing unless the error is fatal.
func (h *VavatoHandler) discoveryFailed(ctx context.Context, url string, err error) error {
	h.stats.page(err)
	if IsFatal(ctx, err) {
		return err
	}
	logging.Errorf("Failed to get number of pages for %s: %v", url, err)
	return nil
}
