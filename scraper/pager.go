package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"vavato_scrooper/logging"
)

// flexInt accepts both JSON numbers and numeric strings; the site is not
// consistent about which one it sends.
type flexInt int64

func (n *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	if v, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*n = flexInt(v)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	*n = flexInt(f)
	return nil
}

type auctionListing struct {
	Results   []rawAuction `json:"results"`
	TotalSize flexInt      `json:"totalSize"`
}

type lotListing struct {
	Results   []rawLot `json:"results"`
	PageSize  flexInt  `json:"pageSize"`
	TotalSize flexInt  `json:"totalSize"`
}

// PageCount is ceil(totalSize / perPage). An empty listing has zero pages.
func PageCount(totalSize, perPage int) (int, error) {
	if totalSize <= 0 {
		return 0, nil
	}
	if perPage <= 0 {
		return 0, fmt.Errorf("cannot page %d results with page size %d", totalSize, perPage)
	}
	return (totalSize + perPage - 1) / perPage, nil
}

// Auction listings carry no explicit page size, so it is inferred from the
// number of results on the first page. A short first page therefore
// overcounts the pages; the extra pages come back empty.
func countAuctionPages(l *auctionListing) (int, error) {
	return PageCount(int(l.TotalSize), len(l.Results))
}

func countLotPages(l *lotListing) (int, error) {
	return PageCount(int(l.TotalSize), int(l.PageSize))
}

func decodeAuctionListing(raw json.RawMessage) (*auctionListing, error) {
	var l auctionListing
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("decode auction listing: %w", err)
	}
	return &l, nil
}

func decodeLotListing(raw json.RawMessage) (*lotListing, error) {
	var l lotListing
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("decode lot listing: %w", err)
	}
	return &l, nil
}

// RunStats counts pages across a run.
type RunStats struct {
	PagesFetched int
	PagesFailed  int
}

func (s *RunStats) page(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.PagesFailed++
		return
	}
	s.PagesFetched++
}

type pageFunc[T any] func(ctx context.Context, pageURL string, page int) ([]T, error)

// collectPages walks pages 1..pageCount. A failing page is logged and
// contributes nothing; only fatal errors stop the walk.
func collectPages[T any](ctx context.Context, pageCount int, pageURL func(page int) string, stats *RunStats, scrape pageFunc[T]) ([]T, error) {
	var all []T
	for page := 1; page <= pageCount; page++ {
		logging.Infof("Scraping page %d of %d", page, pageCount)

		items, err := scrape(ctx, pageURL(page), page)
		stats.page(err)
		if err != nil {
			if IsFatal(ctx, err) {
				return all, err
			}
			logging.Errorf("Failed to scrape page %d: %v", page, err)
			continue
		}
		all = append(all, items...)
	}
	return all, nil
}
