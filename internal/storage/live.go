package storage

import (
	"auctionhouse/backend/internal/auctionerrors"
	"auctionhouse/backend/internal/config"
	"auctionhouse/backend/internal/models"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// LiveStore reads the in-progress bid stream written by the live bidding client.
// It is read-only from the settlement side.
type LiveStore interface {
	FetchLiveAuctionSnapshot(ctx context.Context, roomID string) (*models.LiveSnapshot, error)
}

// LiveAuctionKey is the key-path of a room's snapshot in the live store.
func LiveAuctionKey(roomID string) string {
	return config.LiveAuctionKeyPrefix + roomID
}

// FetchLiveAuctionSnapshot loads auctions/{roomID} from Redis.
// A missing key returns ErrSnapshotNotFound.
func (s *Service) FetchLiveAuctionSnapshot(ctx context.Context, roomID string) (*models.LiveSnapshot, error) {
	raw, err := s.Redis.Get(ctx, LiveAuctionKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("room %s: %w", roomID, auctionerrors.ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("live store: get %s: %w", LiveAuctionKey(roomID), err)
	}

	snap, err := DecodeSnapshot(roomID, raw)
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", roomID, err)
	}
	return snap, nil
}

// rawSnapshot defers decoding of individual bids so one bad entry does not lose the rest.
type rawSnapshot struct {
	Bids              map[string]json.RawMessage `json:"bids"`
	TotalBids         int                        `json:"totalBids"`
	CurrentHighestBid *decimal.Decimal           `json:"currentHighestBid"`
}

// DecodeSnapshot parses the JSON document stored in the live store.
// An empty document or JSON null counts as a missing snapshot. Bid entries that are null
// or malformed are skipped and logged.
func DecodeSnapshot(roomID string, raw []byte) (*models.LiveSnapshot, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, auctionerrors.ErrSnapshotNotFound
	}

	var doc rawSnapshot
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("live store: decode snapshot: %w", err)
	}

	snap := &models.LiveSnapshot{
		TotalBids:         doc.TotalBids,
		CurrentHighestBid: doc.CurrentHighestBid,
	}
	if len(doc.Bids) > 0 {
		snap.Bids = make(map[string]models.LiveBid, len(doc.Bids))
	}
	for id, entry := range doc.Bids {
		fields := log.Fields{"room_id": roomID, "bid_id": id}
		if bytes.Equal(bytes.TrimSpace(entry), []byte("null")) {
			log.WithFields(fields).Warn("skipping empty live bid entry")
			continue
		}
		var bid models.LiveBid
		if err := json.Unmarshal(entry, &bid); err != nil {
			log.WithFields(fields).WithError(err).Warn("skipping malformed live bid entry")
			continue
		}
		snap.Bids[id] = bid
	}
	return snap, nil
}
