package service

import (
	"context"
	"errors"

	"pawmart/internal/models"

	"gorm.io/gorm"
)

// CartStore is the persistence contract the cart engine needs. Implemented by
// repository.CartRepository.
type CartStore interface {
	GetByID(id uint) (*models.CartItem, error)
	GetByUserAndPet(userID, petID uint) (*models.CartItem, error)
	Create(item *models.CartItem) error
	AddQuantity(id uint, qtyDelta int, priceDeltaMinor int64) error
	Delete(id uint) (bool, error)
	DeleteAllByUser(userID uint) error
	CountByUser(userID uint) (int64, error)
	ListByUser(userID uint) ([]models.CartItem, error)
}

// CartService merges duplicate additions per (user, pet) pair and keeps the
// accumulated total price alongside the quantity. Totals are incremental, not
// recomputed from the live listing price.
type CartService struct {
	items CartStore
}

func NewCartService(items CartStore) *CartService {
	return &CartService{items: items}
}

// AddItem adds priceDeltaMinor worth of qtyDelta units to the user's line item
// for the pet, creating the row on first add. Returns the line item and the
// user's distinct line-item count.
func (s *CartService) AddItem(ctx context.Context, userID, petID uint, priceDeltaMinor int64, qtyDelta int) (*models.CartItem, int64, error) {
	if qtyDelta <= 0 {
		qtyDelta = 1
	}
	item, err := s.items.GetByUserAndPet(userID, petID)
	switch {
	case err == nil:
		if err := s.items.AddQuantity(item.ID, qtyDelta, priceDeltaMinor); err != nil {
			return nil, 0, err
		}
		if item, err = s.items.GetByID(item.ID); err != nil {
			return nil, 0, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = &models.CartItem{
			UserID:          userID,
			PetID:           petID,
			Quantity:        qtyDelta,
			TotalPriceMinor: priceDeltaMinor,
		}
		if err := s.items.Create(item); err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, 0, err
			}
			// Lost the create race against a concurrent add; fold into the
			// winner's row instead.
			existing, err := s.items.GetByUserAndPet(userID, petID)
			if err != nil {
				return nil, 0, err
			}
			if err := s.items.AddQuantity(existing.ID, qtyDelta, priceDeltaMinor); err != nil {
				return nil, 0, err
			}
			if item, err = s.items.GetByID(existing.ID); err != nil {
				return nil, 0, err
			}
		}
	default:
		return nil, 0, err
	}
	count, err := s.items.CountByUser(userID)
	if err != nil {
		return nil, 0, err
	}
	return item, count, nil
}

// DecrementItem removes one unit and priceMinor from the line item. At
// quantity 1 the row is deleted outright - a zero-quantity row is never
// persisted. Returns nil when the row was removed.
func (s *CartService) DecrementItem(ctx context.Context, userID, petID uint, priceMinor int64) (*models.CartItem, error) {
	item, err := s.items.GetByUserAndPet(userID, petID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if item.Quantity <= 1 {
		if _, err := s.items.Delete(item.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err := s.items.AddQuantity(item.ID, -1, -priceMinor); err != nil {
		return nil, err
	}
	return s.items.GetByID(item.ID)
}

// RemoveItem deletes a line item by id, scoped to the owning user. Returns
// the user's remaining distinct line-item count.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint) (int64, error) {
	item, err := s.items.GetByID(itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if item.UserID != userID {
		return 0, ErrNotFound
	}
	deleted, err := s.items.Delete(itemID)
	if err != nil {
		return 0, err
	}
	if !deleted {
		return 0, ErrNotFound
	}
	return s.items.CountByUser(userID)
}

func (s *CartService) ClearCart(ctx context.Context, userID uint) (int64, error) {
	if err := s.items.DeleteAllByUser(userID); err != nil {
		return 0, err
	}
	return s.items.CountByUser(userID)
}

// FetchCart returns the user's line items with listing display fields. Items
// whose pet was deleted come back with a nil Pet rather than failing the
// whole fetch.
func (s *CartService) FetchCart(ctx context.Context, userID uint) ([]models.CartItem, error) {
	return s.items.ListByUser(userID)
}
