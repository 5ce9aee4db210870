// Package settlement closes expired auction rooms: it merges the live bid stream into the
// durable ledger, recomputes the room statistics, ends the room and notifies the winner.
package settlement

import (
	"auctionhouse/backend/internal/models"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// BidLedger is the part of the durable store the reconciler writes to.
type BidLedger interface {
	BidExists(ctx context.Context, bidID string) (bool, error)
	InsertBid(ctx context.Context, bid *models.Bid) error
}

// Reconciler copies live bids into the durable ledger, keyed by bid identifier.
type Reconciler struct {
	Ledger      BidLedger
	CallTimeout time.Duration
}

func NewReconciler(ledger BidLedger, callTimeout time.Duration) *Reconciler {
	return &Reconciler{Ledger: ledger, CallTimeout: callTimeout}
}

// ReconcileBids inserts every bid not yet in the ledger and returns how many were inserted.
// A new bid is flagged winning only if its amount equals currentHighest exactly.
// Bids without a bidder identity are skipped and logged.
// The first store error aborts the batch; bids already written stay, and a retry skips them.
func (r *Reconciler) ReconcileBids(ctx context.Context, roomID string, bids []models.IncomingBid, currentHighest *decimal.Decimal) (int, error) {
	inserted := 0
	for _, in := range bids {
		if in.BidderID == "" {
			log.WithFields(log.Fields{"room_id": roomID, "bid_id": in.ID}).Warn("skipping live bid without bidder")
			continue
		}
		exists, err := r.exists(ctx, in.ID)
		if err != nil {
			return inserted, fmt.Errorf("reconcile room %s: lookup bid %s: %w", roomID, in.ID, err)
		}
		if exists {
			continue
		}

		bid := &models.Bid{
			ID:         in.ID,
			RoomID:     roomID,
			BidderID:   in.BidderID,
			BidderName: in.BidderName,
			Amount:     in.Amount,
			Timestamp:  in.Timestamp,
			IsWinning:  currentHighest != nil && in.Amount.Equal(*currentHighest),
			BidType:    models.BidTypeRegular,
			IsActive:   true,
		}
		if err := r.insert(ctx, bid); err != nil {
			return inserted, fmt.Errorf("reconcile room %s: insert bid %s: %w", roomID, in.ID, err)
		}
		inserted++
	}
	return inserted, nil
}

func (r *Reconciler) exists(ctx context.Context, bidID string) (bool, error) {
	ctx, cancel := withCallTimeout(ctx, r.CallTimeout)
	defer cancel()
	return r.Ledger.BidExists(ctx, bidID)
}

func (r *Reconciler) insert(ctx context.Context, bid *models.Bid) error {
	ctx, cancel := withCallTimeout(ctx, r.CallTimeout)
	defer cancel()
	return r.Ledger.InsertBid(ctx, bid)
}

func withCallTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
