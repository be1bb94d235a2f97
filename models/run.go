package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

type ScrapeRun struct {
	ID                int64      `json:"id" db:"id"`
	RunID             string     `json:"run_id" db:"run_id"`
	SiteID            string     `json:"site_id" db:"site_id"`
	StartedAt         time.Time  `json:"started_at" db:"started_at"`
	FinishedAt        *time.Time `json:"finished_at" db:"finished_at"`
	Status            RunStatus  `json:"status" db:"status"`
	OpenAuctions      int        `json:"open_auctions" db:"open_auctions"`
	ClosedAuctions    int        `json:"closed_auctions" db:"closed_auctions"`
	OpenAuctionLots   int        `json:"open_auction_lots" db:"open_auction_lots"`
	ClosedAuctionLots int        `json:"closed_auction_lots" db:"closed_auction_lots"`
	PagesFetched      int        `json:"pages_fetched" db:"pages_fetched"`
	PagesFailed       int        `json:"pages_failed" db:"pages_failed"`
	OutputPath        string     `json:"output_path" db:"output_path"`
}

// Count copies the table sizes of a result onto the run.
func (r *ScrapeRun) Count(res *Result) {
	r.OpenAuctions = len(res.OpenAuctions)
	r.ClosedAuctions = len(res.ClosedAuctions)
	r.OpenAuctionLots = len(res.OpenAuctionLots)
	r.ClosedAuctionLots = len(res.ClosedAuctionLots)
}
