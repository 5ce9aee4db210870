package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductEnvironment says where a product is currently listed.
type ProductEnvironment string

const (
	EnvironmentMarketplace ProductEnvironment = "marketplace"
	EnvironmentAuction     ProductEnvironment = "auction"
)

// Product is a seller's listing. Only the fields settlement touches are modelled here.
type Product struct {
	ID          string             `gorm:"primaryKey;type:uuid" json:"id"`
	SellerID    string             `gorm:"type:varchar(64);index" json:"seller_id"`
	Title       string             `gorm:"type:text;not null" json:"title"`
	Description string             `gorm:"type:text" json:"description"`
	Price       decimal.Decimal    `gorm:"type:numeric;not null;default:0" json:"price"`
	Images      pq.StringArray     `gorm:"type:text[]" json:"images"`
	Environment ProductEnvironment `gorm:"type:varchar(20);not null;default:marketplace;index" json:"environment"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// BeforeCreate generates a UUID for new products.
func (p *Product) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return
}
