package repository

import (
	"time"

	"pawmart/internal/domain"
	"pawmart/internal/models"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByOrderID(orderID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("order_id = ?", orderID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByGatewayPaymentID(gatewayPaymentID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("gateway_payment_id = ?", gatewayPaymentID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) Update(p *models.Payment) error {
	return r.db.Save(p).Error
}

// Complete transitions a payment to completed, guarded by the current status
// so replayed confirmations and the verify/webhook race stay idempotent.
// Expired is included: a late capture means funds actually moved.
// Returns false when the row was already past the guard.
func (r *PaymentRepository) Complete(orderID, gatewayPaymentID, signature string) (bool, error) {
	now := time.Now()
	patch := map[string]interface{}{
		"status":       domain.PaymentCompleted,
		"completed_at": now,
		"updated_at":   now,
	}
	if gatewayPaymentID != "" {
		patch["gateway_payment_id"] = gatewayPaymentID
	}
	if signature != "" {
		patch["signature"] = signature
	}
	res := r.db.Model(&models.Payment{}).
		Where("order_id = ? AND status IN ?", orderID, []domain.PaymentStatus{domain.PaymentPending, domain.PaymentExpired}).
		Updates(patch)
	return res.RowsAffected > 0, res.Error
}

// Fail marks a pending or expired payment failed. Terminal rows are left
// untouched; the guard matches Complete's so a failure notice landing after
// the sweep still settles the row.
func (r *PaymentRepository) Fail(orderID string) (bool, error) {
	res := r.db.Model(&models.Payment{}).
		Where("order_id = ? AND status IN ?", orderID, []domain.PaymentStatus{domain.PaymentPending, domain.PaymentExpired}).
		Update("status", domain.PaymentFailed)
	return res.RowsAffected > 0, res.Error
}

// ExpireStale sweeps pending payments created before the cutoff to expired.
// Abandoned checkouts otherwise accumulate as pending rows forever.
func (r *PaymentRepository) ExpireStale(cutoff time.Time) (int64, error) {
	res := r.db.Model(&models.Payment{}).
		Where("status = ? AND created_at < ?", domain.PaymentPending, cutoff).
		Update("status", domain.PaymentExpired)
	return res.RowsAffected, res.Error
}

func (r *PaymentRepository) ListByUser(userID uint, limit, offset int) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// ListCompletedByUser feeds the entitlement rebuild procedure.
func (r *PaymentRepository) ListCompletedByUser(userID uint) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.Where("user_id = ? AND status = ?", userID, domain.PaymentCompleted).Find(&list).Error
	return list, err
}
