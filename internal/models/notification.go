package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// WinnerNotification is an append-only audit row written for every winner notification attempt.
type WinnerNotification struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	RoomID   string `gorm:"type:uuid;not null;index" json:"room_id"`
	WinnerID string `gorm:"type:varchar(64);not null" json:"winner_id"`
	// Success mirrors the primary channel outcome.
	Success bool   `gorm:"not null" json:"success"`
	Method  string `gorm:"type:varchar(20)" json:"method"`
	// Channels lists every channel that delivered successfully.
	Channels pq.StringArray `gorm:"type:text[]" json:"channels"`
	// Detail holds the full per-channel breakdown.
	Detail      datatypes.JSON `gorm:"type:jsonb" json:"detail"`
	AttemptedAt time.Time      `gorm:"not null;index" json:"attempted_at"`
}
