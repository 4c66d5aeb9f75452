package repository

import (
	"pawmart/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EntitlementRepository struct {
	db *gorm.DB
}

func NewEntitlementRepository(db *gorm.DB) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

// Grant records that the user paid for the pet. Set-like: re-granting an
// existing pair is a no-op, enforced by the composite unique index.
func (r *EntitlementRepository) Grant(userID, petID uint) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Entitlement{UserID: userID, PetID: petID}).Error
}

func (r *EntitlementRepository) Has(userID, petID uint) (bool, error) {
	var c int64
	err := r.db.Model(&models.Entitlement{}).Where("user_id = ? AND pet_id = ?", userID, petID).Count(&c).Error
	return c > 0, err
}

func (r *EntitlementRepository) ListPetIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Entitlement{}).Where("user_id = ?", userID).Order("created_at ASC").Pluck("pet_id", &ids).Error
	return ids, err
}
