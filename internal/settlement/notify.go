package settlement

import (
	"auctionhouse/backend/internal/auctionerrors"
	"auctionhouse/backend/internal/models"
	"auctionhouse/backend/internal/notification"
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// SweepResult summarises one NotifyPendingWinners run.
type SweepResult struct {
	Pending          int               `json:"pending"`
	Notified         int               `json:"notified"`
	ProductsReturned int               `json:"productsReturned"`
	Failed           int               `json:"failed"`
	Errors           map[string]string `json:"errors,omitempty"`
}

func (r *SweepResult) fail(roomID string, err error) {
	r.Failed++
	if r.Errors == nil {
		r.Errors = make(map[string]string)
	}
	if prev, ok := r.Errors[roomID]; ok {
		r.Errors[roomID] = prev + "; " + err.Error()
		return
	}
	r.Errors[roomID] = err.Error()
}

// NotifyRoomWinner retries the winner notification for one ended room.
// The room must be ended with a winner, otherwise ErrRoomNotPending is returned.
func (s *Service) NotifyRoomWinner(ctx context.Context, roomID string) (*notification.Result, error) {
	gctx, cancel := withCallTimeout(ctx, s.CallTimeout)
	room, err := s.Storage.GetRoomByID(gctx, roomID)
	cancel()
	if err != nil {
		return nil, err
	}
	if room.Status != models.AuctionEnded || !room.HasWinner() {
		return nil, fmt.Errorf("room %s is %s: %w", roomID, room.Status, auctionerrors.ErrRoomNotPending)
	}
	return s.notifyAndMark(ctx, room)
}

// NotifyPendingWinners retries every ended room whose winner was not yet notified.
// It first moves products of settled rooms that are still held in the auction back to
// the marketplace. A failing room is counted and the sweep moves on.
func (s *Service) NotifyPendingWinners(ctx context.Context) (*SweepResult, error) {
	sweep := &SweepResult{}
	if err := s.returnStrandedProducts(ctx, sweep); err != nil {
		return nil, err
	}

	qctx, cancel := withCallTimeout(ctx, s.CallTimeout)
	rooms, err := s.Storage.GetRoomsPendingNotification(qctx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("pending winner notifications: %w", err)
	}

	sweep.Pending = len(rooms)
	for i := range rooms {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.notifyAndMark(ctx, &rooms[i]); err != nil {
			sweep.fail(rooms[i].ID, err)
			log.WithField("room_id", rooms[i].ID).WithError(err).Warn("winner notification retry failed")
			continue
		}
		sweep.Notified++
	}
	return sweep, nil
}

func (s *Service) returnStrandedProducts(ctx context.Context, sweep *SweepResult) error {
	qctx, cancel := withCallTimeout(ctx, s.CallTimeout)
	rooms, err := s.Storage.GetSettledRoomsWithAuctionProduct(qctx)
	cancel()
	if err != nil {
		return fmt.Errorf("settled rooms with auction product: %w", err)
	}

	for i := range rooms {
		if ctx.Err() != nil {
			break
		}
		entry := log.WithFields(log.Fields{"room_id": rooms[i].ID, "product_id": rooms[i].ProductID})
		if err := s.returnProduct(ctx, &rooms[i]); err != nil {
			sweep.fail(rooms[i].ID, err)
			entry.WithError(err).Warn("product return retry failed")
			continue
		}
		sweep.ProductsReturned++
		entry.Info("product returned to marketplace")
	}
	return nil
}

func (s *Service) notifyAndMark(ctx context.Context, room *models.AuctionRoom) (*notification.Result, error) {
	amount := room.StartingBid
	if room.CurrentHighestBid.Valid {
		amount = room.CurrentHighestBid.Decimal
	}

	title := s.productTitle(ctx, room.ProductID)
	res, err := s.notify(ctx, room.ID, *room.WinnerID, title, amount)
	if err != nil {
		return res, err
	}
	if err := s.markNotified(ctx, room.ID); err != nil {
		return res, err
	}
	log.WithField("room_id", room.ID).Info("winner notified")
	return res, nil
}
