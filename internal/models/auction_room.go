package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AuctionStatus is the lifecycle state of an auction room.
// Rooms only ever move forward: scheduled -> active -> ended -> winner_notified.
type AuctionStatus string

const (
	AuctionScheduled      AuctionStatus = "scheduled"
	AuctionActive         AuctionStatus = "active"
	AuctionEnded          AuctionStatus = "ended"
	AuctionWinnerNotified AuctionStatus = "winner_notified"
)

var auctionStatusOrder = map[AuctionStatus]int{
	AuctionScheduled:      0,
	AuctionActive:         1,
	AuctionEnded:          2,
	AuctionWinnerNotified: 3,
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
func (s AuctionStatus) CanAdvanceTo(next AuctionStatus) bool {
	from, ok := auctionStatusOrder[s]
	if !ok {
		return false
	}
	to, ok := auctionStatusOrder[next]
	if !ok {
		return false
	}
	return to > from
}

// AuctionRoom is the durable record of one auctioned product (1:1 with Product).
// The counter fields (TotalBids, TotalParticipants, CurrentHighestBid) are a cache that
// settlement recomputes from the bid ledger.
type AuctionRoom struct {
	// ID is the room identifier (UUID). It is also the live-store key suffix.
	ID string `gorm:"primaryKey;type:uuid" json:"id"`
	// ProductID links the room to the auctioned product.
	ProductID string   `gorm:"type:uuid;not null;uniqueIndex" json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`

	StartingBid decimal.Decimal `gorm:"type:numeric;not null" json:"starting_bid"`
	// CurrentHighestBid is null until the first bid, then >= StartingBid.
	CurrentHighestBid      decimal.NullDecimal `gorm:"type:numeric" json:"current_highest_bid"`
	CurrentHighestBidderID *string             `gorm:"type:varchar(64)" json:"current_highest_bidder_id"`
	// WinnerID is only set at settlement.
	WinnerID     *string         `gorm:"type:varchar(64);index" json:"winner_id"`
	ReservePrice decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"reserve_price"`
	MinIncrement decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"min_increment"`

	StartTime time.Time     `gorm:"not null" json:"start_time"`
	EndTime   time.Time     `gorm:"not null;index:idx_room_status_end,priority:2" json:"end_time"`
	Status    AuctionStatus `gorm:"type:varchar(20);not null;default:scheduled;index:idx_room_status_end,priority:1" json:"status"`

	TotalBids         int                 `gorm:"not null;default:0" json:"total_bids"`
	TotalParticipants int                 `gorm:"not null;default:0" json:"total_participants"`
	ReserveReached    bool                `gorm:"not null;default:false" json:"reserve_reached"`
	BuyNowPrice       decimal.NullDecimal `gorm:"type:numeric" json:"buy_now_price"`
	// NotifiedAt is stamped together with the winner_notified transition.
	NotifiedAt *time.Time `json:"notified_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Bids []Bid `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a UUID when the room has none yet.
func (r *AuctionRoom) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// HasWinner reports whether settlement recorded a winner for the room.
func (r *AuctionRoom) HasWinner() bool {
	return r.WinnerID != nil && *r.WinnerID != ""
}
