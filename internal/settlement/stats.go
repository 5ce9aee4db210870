package settlement

import (
	"auctionhouse/backend/internal/models"

	"github.com/shopspring/decimal"
)

// Stats is the final state of a room computed from its bid ledger.
type Stats struct {
	TotalBids         int             `json:"totalBids"`
	TotalParticipants int             `json:"totalParticipants"`
	HighestBid        decimal.Decimal `json:"highestBid"`
	HighestBidderID   *string         `json:"highestBidderId"`
	WinnerID          *string         `json:"winnerId"`
	WinningBidID      string          `json:"winningBidId,omitempty"`
	ReserveReached    bool            `json:"reserveReached"`
}

// HasWinner reports whether the room sold.
func (s Stats) HasWinner() bool {
	return s.WinnerID != nil
}

// ComputeStats reduces the room's bids to its final statistics. Inactive bids and bids
// without a bidder are ignored.
//
// Only bids at or above the starting bid can become the highest bid; when none qualify the
// room has no winner and the highest bid stays at the starting bid. The result does not
// depend on the order of bids: ties on the highest amount go to the earliest timestamp, then
// to the lowest bid identifier. A positive reportedTotal is the live store's own count and
// takes precedence over the ledger count.
func ComputeStats(room *models.AuctionRoom, bids []models.Bid, reportedTotal int) Stats {
	st := Stats{HighestBid: room.StartingBid}

	bidders := make(map[string]struct{})
	var best *models.Bid
	count := 0
	for i := range bids {
		b := &bids[i]
		if !b.IsActive || b.BidderID == "" {
			continue
		}
		count++
		bidders[b.BidderID] = struct{}{}
		if b.Amount.LessThan(room.StartingBid) {
			continue
		}
		if best == nil || outranks(b, best) {
			best = b
		}
	}

	st.TotalBids = count
	if reportedTotal > 0 {
		st.TotalBids = reportedTotal
	}
	st.TotalParticipants = len(bidders)

	if best == nil {
		return st
	}

	winner := best.BidderID
	st.HighestBid = best.Amount
	st.HighestBidderID = &winner
	st.WinnerID = &winner
	st.WinningBidID = best.ID
	st.ReserveReached = best.Amount.GreaterThanOrEqual(room.ReservePrice)
	return st
}

func outranks(a, b *models.Bid) bool {
	if c := a.Amount.Cmp(b.Amount); c != 0 {
		return c > 0
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}
