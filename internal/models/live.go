package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// LiveBid is one entry of the live snapshot's bid map as written by the bidding client.
type LiveBid struct {
	UserName  string          `json:"userName"`
	Amount    decimal.Decimal `json:"amount"`
	BidderID  string          `json:"bidderId"`
	UserID    string          `json:"userId"`
	Timestamp int64           `json:"timestamp"` // epoch milliseconds
}

// Bidder returns the bidder identifier, preferring bidderId over userId.
func (b LiveBid) Bidder() string {
	if b.BidderID != "" {
		return b.BidderID
	}
	return b.UserID
}

// LiveSnapshot is the projection stored under auctions/{auctionId} in the live store.
type LiveSnapshot struct {
	Bids              map[string]LiveBid `json:"bids"`
	TotalBids         int                `json:"totalBids"`
	CurrentHighestBid *decimal.Decimal   `json:"currentHighestBid"`
}

// IncomingBid is a bid on its way from the live store into the durable ledger.
type IncomingBid struct {
	ID         string
	BidderID   string
	BidderName string
	Amount     decimal.Decimal
	Timestamp  time.Time
}

// IncomingBids flattens the bid map, ordered by timestamp and then by ID.
// A nil snapshot yields no bids.
func (s *LiveSnapshot) IncomingBids() []IncomingBid {
	if s == nil || len(s.Bids) == 0 {
		return nil
	}
	out := make([]IncomingBid, 0, len(s.Bids))
	for id, b := range s.Bids {
		out = append(out, IncomingBid{
			ID:         id,
			BidderID:   b.Bidder(),
			BidderName: b.UserName,
			Amount:     b.Amount,
			Timestamp:  time.UnixMilli(b.Timestamp).UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
