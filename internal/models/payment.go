package models

import (
	"time"

	"pawmart/internal/domain"

	"gorm.io/gorm"
)

// Payment is the local ledger row for one payment attempt. The gateway order
// id is assigned at creation; the gateway payment id and signature arrive only
// after the user completes checkout (via client verification or webhook).
type Payment struct {
	ID               uint                 `gorm:"primaryKey" json:"id"`
	UserID           uint                 `gorm:"not null;index" json:"user_id"`
	PetID            *uint                `gorm:"index" json:"pet_id"` // nil for wallet top-ups and service fees
	OrderID          string               `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	GatewayPaymentID *string              `gorm:"size:64;uniqueIndex" json:"gateway_payment_id"` // nil until captured (avoids duplicate '' on unique index)
	Signature        string               `gorm:"size:128" json:"-"`
	AmountMinor      int64                `gorm:"not null" json:"amount_minor"`
	Currency         string               `gorm:"size:3;default:'INR'" json:"currency"`
	Status           domain.PaymentStatus `gorm:"size:20;not null;index" json:"status"`
	Method           string               `gorm:"size:20" json:"method"`
	ServiceType      string               `gorm:"size:20" json:"service_type"` // adoption | mating | boarding | other
	Receipt          string               `gorm:"size:64" json:"receipt"`
	CompletedAt      *time.Time           `json:"completed_at"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	DeletedAt        gorm.DeletedAt       `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}
