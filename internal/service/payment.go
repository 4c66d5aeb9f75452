package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"pawmart/config"
	"pawmart/internal/domain"
	"pawmart/internal/models"
	"pawmart/pkg/gateway"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentStore is the persistence contract the reconciliation engine needs.
// Implemented by repository.PaymentRepository.
type PaymentStore interface {
	Create(p *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByOrderID(orderID string) (*models.Payment, error)
	GetByGatewayPaymentID(gatewayPaymentID string) (*models.Payment, error)
	Update(p *models.Payment) error
	Complete(orderID, gatewayPaymentID, signature string) (bool, error)
	Fail(orderID string) (bool, error)
	ExpireStale(cutoff time.Time) (int64, error)
	ListByUser(userID uint, limit, offset int) ([]models.Payment, error)
	ListCompletedByUser(userID uint) ([]models.Payment, error)
}

// EntitlementStore is the set-like "has paid for" projection. Implemented by
// repository.EntitlementRepository.
type EntitlementStore interface {
	Grant(userID, petID uint) error
	Has(userID, petID uint) (bool, error)
	ListPetIDs(userID uint) ([]uint, error)
}

// PetStore resolves listings for order creation. Implemented by
// repository.PetRepository.
type PetStore interface {
	GetByID(id uint) (*models.Pet, error)
}

// UserStore resolves accounts for the entitlement rebuild. Implemented by
// repository.UserRepository.
type UserStore interface {
	GetByID(id uint) (*models.User, error)
}

// PaymentService drives the payment lifecycle: gateway order creation, client
// signature verification, webhook ingestion and refunds. Every transition is
// guarded by the current status, so verification, webhook replays and the
// verify/webhook race all converge on the same terminal state.
type PaymentService struct {
	cfg          *config.GatewayConfig
	payments     PaymentStore
	entitlements EntitlementStore
	pets         PetStore
	users        UserStore
	gw           gateway.Client
}

func NewPaymentService(cfg *config.GatewayConfig, payments PaymentStore, entitlements EntitlementStore, pets PetStore, users UserStore, gw gateway.Client) *PaymentService {
	return &PaymentService{cfg: cfg, payments: payments, entitlements: entitlements, pets: pets, users: users, gw: gw}
}

// OrderInput describes a checkout the client wants to start. Amount is in
// major currency units; the gateway is called with the x100 minor-unit value.
type OrderInput struct {
	Amount      float64
	Currency    string
	Receipt     string
	PetID       *uint
	ServiceType string
	Method      string
}

// OrderResult pairs the gateway order handle with the local ledger row so the
// client can proceed to the gateway's checkout step.
type OrderResult struct {
	Order   *gateway.Order
	Payment *models.Payment
}

// CreateOrder asks the gateway for an order and persists a pending Payment
// holding the returned order id. Nothing is persisted when the gateway call
// fails - the ledger records attempts the gateway accepted, not non-attempts.
func (s *PaymentService) CreateOrder(ctx context.Context, userID uint, in OrderInput) (*OrderResult, error) {
	if in.Amount <= 0 || math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) {
		return nil, ErrInvalidAmount
	}
	amountMinor := int64(math.Round(in.Amount * 100))
	var pet *models.Pet
	if in.PetID != nil {
		var err error
		if pet, err = s.pets.GetByID(*in.PetID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
	}
	currency := in.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}
	receipt := in.Receipt
	if receipt == "" {
		// Unique enough to avoid gateway-side receipt collisions.
		receipt = fmt.Sprintf("rcpt_%s_%d", uuid.New().String()[:8], time.Now().Unix())
	}
	order, err := s.gw.CreateOrder(ctx, amountMinor, currency, receipt)
	if err != nil {
		return nil, err
	}
	serviceType := in.ServiceType
	if serviceType == "" && pet != nil {
		serviceType = pet.ServiceType
	}
	if serviceType == "" {
		serviceType = domain.ServiceOther
	}
	p := &models.Payment{
		UserID:      userID,
		PetID:       in.PetID,
		OrderID:     order.ID,
		AmountMinor: amountMinor,
		Currency:    currency,
		Status:      domain.PaymentPending,
		Method:      in.Method,
		ServiceType: serviceType,
		Receipt:     receipt,
	}
	if err := s.payments.Create(p); err != nil {
		return nil, err
	}
	log.Printf("[PAYMENT] order created order_id=%s user_id=%d amount_minor=%d %s", order.ID, userID, amountMinor, currency)
	return &OrderResult{Order: order, Payment: p}, nil
}

// VerifyPayment checks the client-supplied checkout signature and, on match,
// idempotently completes the payment and grants the entitlement. Repeat calls
// with the same valid inputs return the same success. A mismatch leaves the
// record untouched - the client may retry with correct data.
func (s *PaymentService) VerifyPayment(ctx context.Context, userID uint, orderID, gatewayPaymentID, signature string, petID *uint) (*models.Payment, error) {
	if !gateway.VerifyPaymentSignature(orderID, gatewayPaymentID, signature, s.cfg.KeySecret) {
		return nil, ErrVerificationFailed
	}
	p, err := s.payments.GetByOrderID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	switch p.Status {
	case domain.PaymentCompleted:
		// Replay of an already-verified payment.
	case domain.PaymentFailed, domain.PaymentRefunded:
		return nil, ErrInvalidState
	default:
		if _, err := s.payments.Complete(orderID, gatewayPaymentID, signature); err != nil {
			return nil, err
		}
		// A concurrent webhook may have won the guarded update; either way the
		// row is completed now.
		if p, err = s.payments.GetByOrderID(orderID); err != nil {
			return nil, err
		}
	}
	if p.PetID == nil && petID != nil {
		// The verify call resolved the target; write it back so the
		// entitlement stays derivable by replaying the ledger alone.
		p.PetID = petID
		if err := s.payments.Update(p); err != nil {
			return nil, err
		}
	}
	if p.PetID != nil {
		if _, err := s.grantOnce(p.UserID, *p.PetID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// grantOnce appends to the entitlement projection only when the pair is
// absent, keeping the set-like invariant. Returns whether a row was added.
func (s *PaymentService) grantOnce(userID, petID uint) (bool, error) {
	has, err := s.entitlements.Has(userID, petID)
	if err != nil {
		return false, err
	}
	if has {
		return false, nil
	}
	if err := s.entitlements.Grant(userID, petID); err != nil {
		return false, err
	}
	return true, nil
}

// GatewayEvent is a parsed webhook event. The HTTP handler has already
// authenticated the raw body before this is built.
type GatewayEvent struct {
	Kind             string
	GatewayPaymentID string
	OrderID          string
}

// HandleGatewayEvent applies an asynchronous gateway confirmation. Replays
// and out-of-order delivery are safe: completed stays completed, terminal
// rows are never downgraded, and a capture landing after the pending sweep
// still wins because funds moved.
func (s *PaymentService) HandleGatewayEvent(ctx context.Context, evt GatewayEvent) error {
	p, err := s.findByEvent(evt)
	if err != nil {
		return err
	}
	switch evt.Kind {
	case domain.EventPaymentCaptured:
		if p.Status == domain.PaymentCompleted {
			return nil
		}
		if p.Status == domain.PaymentFailed || p.Status == domain.PaymentRefunded {
			log.Printf("[PAYMENT] ignoring capture for terminal payment order_id=%s status=%s", p.OrderID, p.Status)
			return nil
		}
		if _, err := s.payments.Complete(p.OrderID, evt.GatewayPaymentID, ""); err != nil {
			return err
		}
		if p.PetID != nil {
			if _, err := s.grantOnce(p.UserID, *p.PetID); err != nil {
				return err
			}
		}
		log.Printf("[PAYMENT] captured order_id=%s gateway_payment_id=%s", p.OrderID, evt.GatewayPaymentID)
	case domain.EventPaymentFailed:
		if p.Status.Terminal() {
			return nil
		}
		if _, err := s.payments.Fail(p.OrderID); err != nil {
			return err
		}
		log.Printf("[PAYMENT] failed order_id=%s", p.OrderID)
	default:
		// Unknown events are acknowledged and ignored.
	}
	return nil
}

func (s *PaymentService) findByEvent(evt GatewayEvent) (*models.Payment, error) {
	if evt.GatewayPaymentID != "" {
		p, err := s.payments.GetByGatewayPaymentID(evt.GatewayPaymentID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if evt.OrderID != "" {
		p, err := s.payments.GetByOrderID(evt.OrderID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// Refund asks the gateway to refund a completed payment, optionally partial.
// The local row moves to refunded only after the gateway accepts; on gateway
// failure it stays completed.
func (s *PaymentService) Refund(ctx context.Context, paymentID uint, amount *float64, notes map[string]string) (*models.Payment, *gateway.Refund, error) {
	p, err := s.payments.GetByID(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if p.Status != domain.PaymentCompleted || p.GatewayPaymentID == nil {
		return nil, nil, ErrInvalidState
	}
	amountMinor := p.AmountMinor
	if amount != nil {
		amountMinor = int64(math.Round(*amount * 100))
		if amountMinor <= 0 || amountMinor > p.AmountMinor {
			return nil, nil, ErrInvalidAmount
		}
	}
	refund, err := s.gw.Refund(ctx, *p.GatewayPaymentID, amountMinor, notes)
	if err != nil {
		return nil, nil, err
	}
	p.Status = domain.PaymentRefunded
	if err := s.payments.Update(p); err != nil {
		return nil, nil, err
	}
	log.Printf("[PAYMENT] refunded order_id=%s refund_id=%s amount_minor=%d", p.OrderID, refund.ID, amountMinor)
	return p, refund, nil
}

// ExpireStale sweeps pending payments older than the configured TTL.
func (s *PaymentService) ExpireStale(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.cfg.PendingTTL)
	n, err := s.payments.ExpireStale(cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[PAYMENT] swept %d stale pending payments", n)
	}
	return n, nil
}

// ListPayments returns the user's payment history, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, userID uint, limit, offset int) ([]models.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.payments.ListByUser(userID, limit, offset)
}

// Entitlements returns the pet ids the user has paid for.
func (s *PaymentService) Entitlements(ctx context.Context, userID uint) ([]uint, error) {
	return s.entitlements.ListPetIDs(userID)
}

// RebuildEntitlements replays the user's completed payments into the
// entitlement projection - the recovery procedure if it ever diverges.
func (s *PaymentService) RebuildEntitlements(ctx context.Context, userID uint) (int, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	completed, err := s.payments.ListCompletedByUser(user.ID)
	if err != nil {
		return 0, err
	}
	granted := 0
	for _, p := range completed {
		if p.PetID == nil {
			continue
		}
		added, err := s.grantOnce(p.UserID, *p.PetID)
		if err != nil {
			return granted, err
		}
		if added {
			granted++
		}
	}
	log.Printf("[PAYMENT] rebuilt entitlements user_id=%d granted=%d", user.ID, granted)
	return granted, nil
}
