package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Participant tracks one user's presence in one auction room.
type Participant struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	RoomID      string              `gorm:"type:uuid;not null;uniqueIndex:idx_participant_room_user" json:"room_id"`
	UserID      string              `gorm:"type:varchar(64);not null;uniqueIndex:idx_participant_room_user" json:"user_id"`
	DisplayName string              `gorm:"type:text" json:"display_name"`
	FirstJoined time.Time           `json:"first_joined"`
	LastSeen    time.Time           `json:"last_seen"`
	TotalBids   int                 `gorm:"not null;default:0" json:"total_bids"`
	HighestBid  decimal.NullDecimal `gorm:"type:numeric" json:"highest_bid"`
	IsWinner    bool                `gorm:"not null;default:false" json:"is_winner"`
	HasLeftRoom bool                `gorm:"not null;default:false" json:"has_left_room"`
}
