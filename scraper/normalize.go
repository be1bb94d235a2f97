package scraper

import (
	"strings"
	"time"

	"vavato_scrooper/models"
)

const dateLayout = "02 January 2006"

type collectionDay struct {
	City string `json:"city"`
}

type rawAuction struct {
	Name           string          `json:"name"`
	StartDate      flexInt         `json:"startDate"`
	EndDate        flexInt         `json:"endDate"`
	CollectionDays []collectionDay `json:"collectionDays"`
	URLSlug        string          `json:"urlSlug"`
}

type rawLot struct {
	URLSlug string `json:"urlSlug"`
}

// Normalizer maps raw listing entries onto export rows. It holds no state
// between calls.
type Normalizer struct {
	BaseURL         string
	House           string
	AllowedPrefixes []string
	Location        *time.Location
}

func (n Normalizer) Auction(raw rawAuction) models.AuctionRecord {
	cities := make([]string, 0, len(raw.CollectionDays))
	for _, day := range raw.CollectionDays {
		cities = append(cities, day.City)
	}

	return models.AuctionRecord{
		House:     n.House,
		Name:      raw.Name,
		StartDate: n.date(int64(raw.StartDate)),
		EndDate:   n.date(int64(raw.EndDate)),
		Location:  strings.Join(cities, ","),
		URL:       n.BaseURL + "/en/a/" + raw.URLSlug,
	}
}

// Auctions normalizes a page of auctions and drops those outside the
// allowed prefixes.
func (n Normalizer) Auctions(raws []rawAuction) []models.AuctionRecord {
	records := make([]models.AuctionRecord, 0, len(raws))
	for _, raw := range raws {
		records = append(records, n.Auction(raw))
	}
	return FilterAllowedAuctions(records, n.AllowedPrefixes)
}

func (n Normalizer) Lot(raw rawLot, eventURL string) models.LotRecord {
	return models.LotRecord{
		EventURL:   eventURL,
		VehicleURL: n.BaseURL + "/en/l/" + raw.URLSlug,
	}
}

func (n Normalizer) Lots(raws []rawLot, eventURL string) []models.LotRecord {
	lots := make([]models.LotRecord, 0, len(raws))
	for _, raw := range raws {
		lots = append(lots, n.Lot(raw, eventURL))
	}
	return lots
}

func (n Normalizer) date(seconds int64) string {
	loc := n.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(seconds, 0).In(loc).Format(dateLayout)
}

// FilterAllowedAuctions keeps the records whose URL starts with one of
// prefixes, in their original order.
func FilterAllowedAuctions(records []models.AuctionRecord, prefixes []string) []models.AuctionRecord {
	kept := make([]models.AuctionRecord, 0, len(records))
	for _, r := range records {
		if hasAnyPrefix(r.URL, prefixes) {
			kept = append(kept, r)
		}
	}
	return kept
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
