package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the subset of the marketplace user profile that winner notification needs.
// Email is the primary contact; TelegramID and Phone are optional secondary contacts.
type User struct {
	ID         string `gorm:"primaryKey" json:"id"` // UUID
	Name       string `gorm:"type:text" json:"name"`
	Email      string `gorm:"type:text;index" json:"email"`
	Phone      string `gorm:"type:varchar(32)" json:"phone"`
	TelegramID int64  `gorm:"index" json:"telegram_id"` // 0 when the user never linked a chat
	Language   string `gorm:"type:varchar(8);default:en" json:"language"`
}

// BeforeCreate is a GORM hook that runs before the record is inserted.
// It generates a new UUID when the ID is still empty.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// DisplayName returns the user's name, falling back to the email address.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
