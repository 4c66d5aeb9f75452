package models

import (
	"time"
)

// CartItem accumulates quantity and price per (user, pet) pair. TotalPriceMinor
// is tracked incrementally at mutation time, not recomputed from the live pet
// price, so it can drift after a listing price change - accepted behavior.
type CartItem struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;uniqueIndex:idx_cart_user_pet" json:"user_id"`
	PetID           uint      `gorm:"not null;uniqueIndex:idx_cart_user_pet" json:"pet_id"`
	Quantity        int       `gorm:"not null" json:"quantity"` // always > 0; rows are deleted at zero
	TotalPriceMinor int64     `gorm:"not null" json:"total_price_minor"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Pet is nil when the listing was deleted after the item was added.
	Pet *Pet `gorm:"foreignKey:PetID" json:"pet,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
