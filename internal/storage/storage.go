package storage

import (
	"auctionhouse/backend/internal/auctionerrors"
	"auctionhouse/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage is the durable relational store used by settlement.
type Storage interface {
	GetExpiredActiveRooms(ctx context.Context, now time.Time) ([]models.AuctionRoom, error)
	GetRoomsPendingNotification(ctx context.Context) ([]models.AuctionRoom, error)
	GetSettledRoomsWithAuctionProduct(ctx context.Context) ([]models.AuctionRoom, error)
	GetRoomByID(ctx context.Context, roomID string) (*models.AuctionRoom, error)

	BidExists(ctx context.Context, bidID string) (bool, error)
	InsertBid(ctx context.Context, bid *models.Bid) error
	GetBidsForRoom(ctx context.Context, roomID string) ([]models.Bid, error)

	SettleRoom(ctx context.Context, roomID string, s RoomSettlement) error
	MarkWinnerNotified(ctx context.Context, roomID string, at time.Time) error
	ReturnProductToMarketplace(ctx context.Context, productID string) error

	GetProductByID(ctx context.Context, productID string) (*models.Product, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	SaveWinnerNotification(ctx context.Context, n *models.WinnerNotification) error
}

// RoomSettlement is the set of fields written when a room moves from active to ended.
type RoomSettlement struct {
	TotalBids         int
	TotalParticipants int
	HighestBid        decimal.Decimal
	HighestBidderID   *string
	WinnerID          *string
	// WinningBidID is the single bid flagged as winning; empty when there were no bids.
	WinningBidID   string
	ReserveReached bool
}

// Service implements Storage on PostgreSQL (gorm) and LiveStore on Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// AutoMigrate creates or updates every table settlement reads or writes.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.AuctionRoom{},
		&models.Bid{},
		&models.Participant{},
		&models.WinnerNotification{},
	)
}

// GetExpiredActiveRooms returns rooms still marked active whose end time is at or before now.
func (s *Service) GetExpiredActiveRooms(ctx context.Context, now time.Time) ([]models.AuctionRoom, error) {
	var rooms []models.AuctionRoom
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND end_time <= ?", models.AuctionActive, now).
		Order("end_time asc").
		Find(&rooms).Error; err != nil {
		log.WithError(err).Error("failed to query expired auctions")
		return nil, err
	}
	return rooms, nil
}

// GetRoomsPendingNotification returns ended rooms that have a winner who was not yet notified.
func (s *Service) GetRoomsPendingNotification(ctx context.Context) ([]models.AuctionRoom, error) {
	var rooms []models.AuctionRoom
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND winner_id IS NOT NULL", models.AuctionEnded).
		Order("end_time asc").
		Find(&rooms).Error; err != nil {
		log.WithError(err).Error("failed to query rooms pending winner notification")
		return nil, err
	}
	return rooms, nil
}

// GetSettledRoomsWithAuctionProduct returns ended or notified rooms whose product is still
// listed as an auction, i.e. rooms whose marketplace transition did not go through.
func (s *Service) GetSettledRoomsWithAuctionProduct(ctx context.Context) ([]models.AuctionRoom, error) {
	var rooms []models.AuctionRoom
	if err := s.DB.WithContext(ctx).
		Joins("JOIN products ON products.id = auction_rooms.product_id").
		Where("auction_rooms.status IN ? AND products.environment = ?",
			[]models.AuctionStatus{models.AuctionEnded, models.AuctionWinnerNotified},
			models.EnvironmentAuction).
		Order("auction_rooms.end_time asc").
		Find(&rooms).Error; err != nil {
		log.WithError(err).Error("failed to query settled rooms with auction products")
		return nil, err
	}
	return rooms, nil
}

func (s *Service) GetRoomByID(ctx context.Context, roomID string) (*models.AuctionRoom, error) {
	var room models.AuctionRoom
	err := s.DB.WithContext(ctx).Where("id = ?", roomID).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("room %s: %w", roomID, auctionerrors.ErrRoomNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// BidExists reports whether a bid with this identifier is already in the ledger.
func (s *Service) BidExists(ctx context.Context, bidID string) (bool, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Bid{}).Where("id = ?", bidID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertBid writes a bid; a concurrent insert of the same identifier is a no-op.
func (s *Service) InsertBid(ctx context.Context, bid *models.Bid) error {
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(bid).Error
}

// GetBidsForRoom returns the room's ledger ordered by placement time.
func (s *Service) GetBidsForRoom(ctx context.Context, roomID string) ([]models.Bid, error) {
	var bids []models.Bid
	if err := s.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("timestamp asc, id asc").
		Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}

// SettleRoom ends an active room and applies the winner flags in one transaction.
// It returns ErrRoomNotActive if the room already left the active state.
func (s *Service) SettleRoom(ctx context.Context, roomID string, st RoomSettlement) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.AuctionRoom{}).
			Where("id = ? AND status = ?", roomID, models.AuctionActive).
			Updates(map[string]interface{}{
				"status":                    models.AuctionEnded,
				"total_bids":                st.TotalBids,
				"total_participants":        st.TotalParticipants,
				"current_highest_bid":       st.HighestBid,
				"current_highest_bidder_id": st.HighestBidderID,
				"winner_id":                 st.WinnerID,
				"reserve_reached":           st.ReserveReached,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("room %s: %w", roomID, auctionerrors.ErrRoomNotActive)
		}

		if st.WinningBidID != "" {
			if err := tx.Model(&models.Bid{}).
				Where("room_id = ? AND id <> ? AND is_winning = ?", roomID, st.WinningBidID, true).
				Update("is_winning", false).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Bid{}).
				Where("id = ?", st.WinningBidID).
				Update("is_winning", true).Error; err != nil {
				return err
			}
		}

		if st.WinnerID != nil {
			if err := tx.Model(&models.Participant{}).
				Where("room_id = ? AND user_id = ?", roomID, *st.WinnerID).
				Update("is_winner", true).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkWinnerNotified advances an ended room to winner_notified.
func (s *Service) MarkWinnerNotified(ctx context.Context, roomID string, at time.Time) error {
	res := s.DB.WithContext(ctx).Model(&models.AuctionRoom{}).
		Where("id = ? AND status = ?", roomID, models.AuctionEnded).
		Updates(map[string]interface{}{
			"status":      models.AuctionWinnerNotified,
			"notified_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("room %s: %w", roomID, auctionerrors.ErrRoomNotPending)
	}
	return nil
}

// ReturnProductToMarketplace puts the product back into the general marketplace listing.
func (s *Service) ReturnProductToMarketplace(ctx context.Context, productID string) error {
	res := s.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("environment", models.EnvironmentMarketplace)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s: %w", productID, auctionerrors.ErrProductNotFound)
	}
	return nil
}

func (s *Service) GetProductByID(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	err := s.DB.WithContext(ctx).Where("id = ?", productID).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %s: %w", productID, auctionerrors.ErrProductNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Service) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveWinnerNotification appends a notification audit row.
func (s *Service) SaveWinnerNotification(ctx context.Context, n *models.WinnerNotification) error {
	if err := s.DB.WithContext(ctx).Create(n).Error; err != nil {
		log.WithFields(log.Fields{"room_id": n.RoomID, "winner_id": n.WinnerID}).
			WithError(err).Error("failed to save winner notification")
		return err
	}
	return nil
}
