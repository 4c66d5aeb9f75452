package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the minimal account row this service needs. Signup, login and
// profile management live in the identity service; sessions arrive here as
// signed tokens.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username  string         `gorm:"size:64" json:"username"`
	Role      string         `gorm:"size:20;not null;index" json:"role"` // USER | VENDOR | ADMIN
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
