package models

import (
	"time"
)

// Entitlement marks that a user has paid for a pet. It is a rebuildable
// projection of completed payments, kept for fast "has this user paid for X"
// checks - the Payment ledger stays the source of truth.
type Entitlement struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_entitlement_user_pet" json:"user_id"`
	PetID     uint      `gorm:"not null;uniqueIndex:idx_entitlement_user_pet" json:"pet_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Entitlement) TableName() string {
	return "entitlements"
}
