package models

import (
	"time"

	"gorm.io/gorm"
)

// Pet is a marketplace listing (sale, mating or boarding). Listing CRUD is
// handled by the catalog service; this service only reads listings to expand
// cart rows and record what a payment was for.
type Pet struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	VendorID    uint           `gorm:"not null;index" json:"vendor_id"`
	Name        string         `gorm:"size:128;not null" json:"name"`
	Breed       string         `gorm:"size:64" json:"breed"`
	PriceMinor  int64          `gorm:"not null" json:"price_minor"` // smallest currency unit
	Stock       int            `gorm:"not null;default:0" json:"stock"`
	ImageURL    string         `gorm:"size:512" json:"image_url"`
	ServiceType string         `gorm:"size:20;not null;default:'adoption'" json:"service_type"` // adoption | mating | boarding | other
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Pet) TableName() string {
	return "pets"
}
