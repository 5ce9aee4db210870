package settlement

import (
	"auctionhouse/backend/internal/auctionerrors"
	"auctionhouse/backend/internal/metrics"
	"auctionhouse/backend/internal/models"
	"auctionhouse/backend/internal/notification"
	"auctionhouse/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// WinnerNotifier is implemented by *notification.Orchestrator.
type WinnerNotifier interface {
	NotifyWinner(ctx context.Context, auctionID, winnerID, auctionTitle string, winningBid decimal.Decimal) (*notification.Result, error)
}

// Service drives expired rooms from active to ended and on to winner_notified.
type Service struct {
	Storage     storage.Storage
	Live        storage.LiveStore
	Reconciler  *Reconciler
	Notifier    WinnerNotifier
	CallTimeout time.Duration
	Now         func() time.Time
}

func NewService(st storage.Storage, live storage.LiveStore, notifier WinnerNotifier, callTimeout time.Duration) *Service {
	return &Service{
		Storage:     st,
		Live:        live,
		Reconciler:  NewReconciler(st, callTimeout),
		Notifier:    notifier,
		CallTimeout: callTimeout,
		Now:         time.Now,
	}
}

// RoomResult describes what happened to one room.
type RoomResult struct {
	RoomID          string               `json:"roomId"`
	Status          models.AuctionStatus `json:"status"`
	BidsReconciled  int                  `json:"bidsReconciled"`
	Stats           *Stats               `json:"stats,omitempty"`
	Notification    *notification.Result `json:"notification,omitempty"`
	ProductReturned bool                 `json:"productReturned"`
	Error           string               `json:"error,omitempty"`
}

// BatchResult summarises one CheckExpiredAuctions run.
type BatchResult struct {
	Checked int          `json:"checked"`
	Settled int          `json:"settled"`
	Failed  int          `json:"failed"`
	Rooms   []RoomResult `json:"rooms"`
}

// CheckExpiredAuctions settles every active room whose end time has passed.
// Rooms are processed one after another and a failing room never stops the batch;
// only the initial query can make the call itself fail.
func (s *Service) CheckExpiredAuctions(ctx context.Context) (*BatchResult, error) {
	qctx, cancel := withCallTimeout(ctx, s.CallTimeout)
	rooms, err := s.Storage.GetExpiredActiveRooms(qctx, s.now())
	cancel()
	if err != nil {
		return nil, fmt.Errorf("check expired auctions: %w", err)
	}

	batch := &BatchResult{Checked: len(rooms), Rooms: make([]RoomResult, 0, len(rooms))}
	for i := range rooms {
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).Warn("settlement batch cancelled")
			break
		}

		res, err := s.processIsolated(ctx, &rooms[i])
		if res.Status == models.AuctionEnded || res.Status == models.AuctionWinnerNotified {
			batch.Settled++
		}
		if err != nil {
			batch.Failed++
		}
		batch.Rooms = append(batch.Rooms, *res)
	}

	if batch.Checked > 0 {
		log.WithFields(log.Fields{
			"checked": batch.Checked,
			"settled": batch.Settled,
			"failed":  batch.Failed,
		}).Info("expired auctions processed")
	}
	return batch, nil
}

// processIsolated runs ProcessExpiredAuction and turns a panic into a room failure.
func (s *Service) processIsolated(ctx context.Context, room *models.AuctionRoom) (res *RoomResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("room %s: panic: %v", room.ID, r)
			log.WithField("room_id", room.ID).Error(err)
			metrics.ObserveSettlement(metrics.OutcomeFailed)
			res = &RoomResult{RoomID: room.ID, Status: room.Status, Error: err.Error()}
		}
	}()
	return s.ProcessExpiredAuction(ctx, room)
}

// ProcessExpiredAuction settles one room: reconcile, compute stats, end the room, notify the
// winner, return the product to the marketplace and finally mark the winner notified.
//
// A failure before the room is ended leaves it active so the next tick retries it whole.
// Failures after that are recorded on the result and returned; the pending sweep finishes
// both the notification and the product transition later.
func (s *Service) ProcessExpiredAuction(ctx context.Context, room *models.AuctionRoom) (*RoomResult, error) {
	res := &RoomResult{RoomID: room.ID, Status: room.Status}
	entry := log.WithField("room_id", room.ID)

	fail := func(err error) (*RoomResult, error) {
		res.Error = err.Error()
		entry.WithError(err).Error("auction settlement failed")
		metrics.ObserveSettlement(metrics.OutcomeFailed)
		return res, err
	}

	if !room.Status.CanAdvanceTo(models.AuctionEnded) {
		err := fmt.Errorf("room %s is %s: %w", room.ID, room.Status, auctionerrors.ErrRoomNotActive)
		res.Error = err.Error()
		return res, err
	}

	snap, err := s.fetchSnapshot(ctx, room.ID)
	if err != nil {
		return fail(err)
	}

	var reportedHighest *decimal.Decimal
	reportedTotal := 0
	if snap != nil {
		reportedHighest = snap.CurrentHighestBid
		reportedTotal = snap.TotalBids
	}

	res.BidsReconciled, err = s.Reconciler.ReconcileBids(ctx, room.ID, snap.IncomingBids(), reportedHighest)
	if err != nil {
		return fail(err)
	}

	lctx, cancel := withCallTimeout(ctx, s.CallTimeout)
	bids, err := s.Storage.GetBidsForRoom(lctx, room.ID)
	cancel()
	if err != nil {
		return fail(fmt.Errorf("room %s: load bids: %w", room.ID, err))
	}

	stats := ComputeStats(room, bids, reportedTotal)
	res.Stats = &stats

	uctx, cancel := withCallTimeout(ctx, s.CallTimeout)
	err = s.Storage.SettleRoom(uctx, room.ID, storage.RoomSettlement{
		TotalBids:         stats.TotalBids,
		TotalParticipants: stats.TotalParticipants,
		HighestBid:        stats.HighestBid,
		HighestBidderID:   stats.HighestBidderID,
		WinnerID:          stats.WinnerID,
		WinningBidID:      stats.WinningBidID,
		ReserveReached:    stats.ReserveReached,
	})
	cancel()
	if errors.Is(err, auctionerrors.ErrRoomNotActive) {
		// Another tick got there first; nothing else to do for this room.
		res.Error = err.Error()
		entry.Info("room already settled, skipping")
		return res, err
	}
	if err != nil {
		return fail(fmt.Errorf("room %s: settle: %w", room.ID, err))
	}
	res.Status = models.AuctionEnded
	entry.WithFields(log.Fields{
		"total_bids":   stats.TotalBids,
		"participants": stats.TotalParticipants,
		"highest_bid":  stats.HighestBid.String(),
	}).Info("auction room ended")

	var errs []error
	if stats.HasWinner() {
		title := s.productTitle(ctx, room.ProductID)
		notified, err := s.notify(ctx, room.ID, *stats.WinnerID, title, stats.HighestBid)
		res.Notification = notified
		if err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.returnProduct(ctx, room); err != nil {
		errs = append(errs, err)
	} else {
		res.ProductReturned = true
	}

	if res.Notification != nil && res.Notification.Success {
		if err := s.markNotified(ctx, room.ID); err != nil {
			errs = append(errs, err)
		} else {
			res.Status = models.AuctionWinnerNotified
		}
	}

	if stats.HasWinner() {
		metrics.ObserveSettlement(metrics.OutcomeSold)
	} else {
		metrics.ObserveSettlement(metrics.OutcomeUnsold)
	}

	if err := errors.Join(errs...); err != nil {
		res.Error = err.Error()
		entry.WithError(err).Warn("auction ended with follow-up failures")
		return res, err
	}
	return res, nil
}

func (s *Service) returnProduct(ctx context.Context, room *models.AuctionRoom) error {
	ctx, cancel := withCallTimeout(ctx, s.CallTimeout)
	defer cancel()

	if err := s.Storage.ReturnProductToMarketplace(ctx, room.ProductID); err != nil {
		return fmt.Errorf("room %s: return product %s: %w", room.ID, room.ProductID, err)
	}
	return nil
}

// fetchSnapshot returns nil, nil when the room has no live snapshot.
func (s *Service) fetchSnapshot(ctx context.Context, roomID string) (*models.LiveSnapshot, error) {
	ctx, cancel := withCallTimeout(ctx, s.CallTimeout)
	defer cancel()

	snap, err := s.Live.FetchLiveAuctionSnapshot(ctx, roomID)
	if errors.Is(err, auctionerrors.ErrSnapshotNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("room %s: fetch live snapshot: %w", roomID, err)
	}
	return snap, nil
}

// productTitle returns "" when the product cannot be loaded; the notification then uses
// the catalogue's fallback title.
func (s *Service) productTitle(ctx context.Context, productID string) string {
	ctx, cancel := withCallTimeout(ctx, s.CallTimeout)
	defer cancel()

	product, err := s.Storage.GetProductByID(ctx, productID)
	if err != nil {
		log.WithField("product_id", productID).WithError(err).Warn("could not load product title")
		return ""
	}
	return product.Title
}

// notify sends the winner notification. A result without primary success is an error.
func (s *Service) notify(ctx context.Context, roomID, winnerID, title string, amount decimal.Decimal) (*notification.Result, error) {
	res, err := s.Notifier.NotifyWinner(ctx, roomID, winnerID, title, amount)
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", roomID, err)
	}
	if !res.Success {
		return res, fmt.Errorf("room %s: %s: %w", roomID, res.Primary.Error, auctionerrors.ErrPrimaryChannelFailed)
	}
	return res, nil
}

func (s *Service) markNotified(ctx context.Context, roomID string) error {
	ctx, cancel := withCallTimeout(ctx, s.CallTimeout)
	defer cancel()

	if err := s.Storage.MarkWinnerNotified(ctx, roomID, s.now()); err != nil {
		return fmt.Errorf("room %s: mark winner notified: %w", roomID, err)
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
