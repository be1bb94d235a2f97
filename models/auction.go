package models

import (
	"strconv"
	"strings"
)

const House = "Vavato"

type AuctionStatus int

const (
	AuctionStatusOpen AuctionStatus = iota + 1
	AuctionStatusFuture
	AuctionStatusClosed
)

// String returns the value the site expects in the auctionBiddingStatuses
// query parameter.
func (s AuctionStatus) String() string {
	switch s {
	case AuctionStatusOpen:
		return "BIDDING_OPEN"
	case AuctionStatusFuture:
		return "BIDDING_NOT_YET_OPENED"
	case AuctionStatusClosed:
		return "BIDDING_CLOSED"
	default:
		return ""
	}
}

// StatusQuery joins statuses with an URL-encoded comma.
func StatusQuery(statuses []AuctionStatus) string {
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, "%2C")
}

type AuctionRecord struct {
	House     string `json:"house"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Location  string `json:"location"`
	URL       string `json:"url"`
}

type LotRecord struct {
	EventURL   string `json:"event_url"`
	VehicleURL string `json:"vehicle_url"`
}

// PageQuery identifies one page of a listing.
type PageQuery struct {
	BaseURL  string
	Statuses []AuctionStatus
	Page     int
}

// URL builds the page-specific fetch URL. Auction listing URLs already carry
// the status filter as a query string, so the page is appended with '&';
// lot listings start the query with '?'.
func (q PageQuery) URL() string {
	sep := "?"
	if len(q.Statuses) > 0 {
		sep = "&"
	}
	return q.BaseURL + sep + "page=" + strconv.Itoa(q.Page)
}

// Result holds the four tables a run produces.
type Result struct {
	OpenAuctions      []AuctionRecord
	ClosedAuctions    []AuctionRecord
	OpenAuctionLots   []LotRecord
	ClosedAuctionLots []LotRecord
}

func (r *Result) Empty() bool {
	return len(r.OpenAuctions) == 0 && len(r.ClosedAuctions) == 0 &&
		len(r.OpenAuctionLots) == 0 && len(r.ClosedAuctionLots) == 0
}
