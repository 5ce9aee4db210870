package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BidTypeRegular is the tag carried by ordinary bids copied from the live store.
const BidTypeRegular = "regular"

// Bid is the durable record of one bid placed in an auction room.
// Its ID is the identifier assigned by the live store, which makes reconciliation idempotent.
type Bid struct {
	// ID is the live-store assigned bid identifier.
	ID string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	// RoomID is the owning auction room.
	RoomID string `gorm:"type:uuid;not null;index" json:"room_id"`
	// BidderID and BidderName identify who placed the bid.
	BidderID   string `gorm:"type:varchar(64);not null;index" json:"bidder_id"`
	BidderName string `gorm:"type:text" json:"bidder_name"`
	// Amount is stored exactly as received.
	Amount    decimal.Decimal `gorm:"type:numeric;not null" json:"amount"`
	Timestamp time.Time       `gorm:"not null" json:"timestamp"`
	// IsWinning is set on at most one bid per room.
	IsWinning      bool                `gorm:"not null;default:false" json:"is_winning"`
	PreviousAmount decimal.NullDecimal `gorm:"type:numeric" json:"previous_amount"`
	BidType        string              `gorm:"type:varchar(20);not null;default:regular" json:"bid_type"`
	IsActive       bool                `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
}
