package repository

import (
	"time"

	"pawmart/internal/models"

	"gorm.io/gorm"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) GetByID(id uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.First(&item, id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *CartRepository) GetByUserAndPet(userID, petID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.Where("user_id = ? AND pet_id = ?", userID, petID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *CartRepository) Create(item *models.CartItem) error {
	return r.db.Create(item).Error
}

// AddQuantity applies the quantity/price delta in a single UPDATE so
// concurrent mutations of the same row never lose an increment.
func (r *CartRepository) AddQuantity(id uint, qtyDelta int, priceDeltaMinor int64) error {
	return r.db.Model(&models.CartItem{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"quantity":          gorm.Expr("quantity + ?", qtyDelta),
		"total_price_minor": gorm.Expr("total_price_minor + ?", priceDeltaMinor),
		"updated_at":        time.Now(),
	}).Error
}

// Delete removes a line item by id. Returns false when no row matched.
func (r *CartRepository) Delete(id uint) (bool, error) {
	res := r.db.Delete(&models.CartItem{}, id)
	return res.RowsAffected > 0, res.Error
}

func (r *CartRepository) DeleteAllByUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}

func (r *CartRepository) CountByUser(userID uint) (int64, error) {
	var c int64
	err := r.db.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&c).Error
	return c, err
}

// ListByUser returns the user's line items with the referenced pet preloaded.
// A soft-deleted pet leaves the Pet field nil rather than failing the fetch.
func (r *CartRepository) ListByUser(userID uint) ([]models.CartItem, error) {
	var list []models.CartItem
	err := r.db.Where("user_id = ?", userID).Preload("Pet").Order("created_at ASC").Find(&list).Error
	return list, err
}
