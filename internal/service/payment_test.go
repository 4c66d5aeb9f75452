package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"pawmart/config"
	"pawmart/internal/domain"
	"pawmart/internal/models"
	"pawmart/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memPaymentStore mimics the repository's guarded-transition semantics in
// memory.
type memPaymentStore struct {
	nextID   uint
	payments map[uint]*models.Payment
}

func newMemPaymentStore() *memPaymentStore {
	return &memPaymentStore{payments: make(map[uint]*models.Payment)}
}

func (m *memPaymentStore) Create(p *models.Payment) error {
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	m.payments[p.ID] = p
	return nil
}

func (m *memPaymentStore) GetByID(id uint) (*models.Payment, error) {
	if p, ok := m.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPaymentStore) GetByOrderID(orderID string) (*models.Payment, error) {
	for _, p := range m.payments {
		if p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPaymentStore) GetByGatewayPaymentID(gatewayPaymentID string) (*models.Payment, error) {
	for _, p := range m.payments {
		if p.GatewayPaymentID != nil && *p.GatewayPaymentID == gatewayPaymentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPaymentStore) Update(p *models.Payment) error {
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *memPaymentStore) Complete(orderID, gatewayPaymentID, signature string) (bool, error) {
	for _, p := range m.payments {
		if p.OrderID != orderID {
			continue
		}
		if p.Status != domain.PaymentPending && p.Status != domain.PaymentExpired {
			return false, nil
		}
		now := time.Now()
		p.Status = domain.PaymentCompleted
		p.CompletedAt = &now
		if gatewayPaymentID != "" {
			p.GatewayPaymentID = &gatewayPaymentID
		}
		if signature != "" {
			p.Signature = signature
		}
		return true, nil
	}
	return false, nil
}

func (m *memPaymentStore) Fail(orderID string) (bool, error) {
	for _, p := range m.payments {
		if p.OrderID == orderID && (p.Status == domain.PaymentPending || p.Status == domain.PaymentExpired) {
			p.Status = domain.PaymentFailed
			return true, nil
		}
	}
	return false, nil
}

func (m *memPaymentStore) ExpireStale(cutoff time.Time) (int64, error) {
	var n int64
	for _, p := range m.payments {
		if p.Status == domain.PaymentPending && p.CreatedAt.Before(cutoff) {
			p.Status = domain.PaymentExpired
			n++
		}
	}
	return n, nil
}

func (m *memPaymentStore) ListByUser(userID uint, limit, offset int) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range m.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPaymentStore) ListCompletedByUser(userID uint) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range m.payments {
		if p.UserID == userID && p.Status == domain.PaymentCompleted {
			out = append(out, *p)
		}
	}
	return out, nil
}

// memEntitlementStore keeps (user, pet) pairs and counts every Grant call
// without deduplicating, so a duplicate append shows up as a count above one.
type memEntitlementStore struct {
	pairs map[[2]uint]int
}

func newMemEntitlementStore() *memEntitlementStore {
	return &memEntitlementStore{pairs: make(map[[2]uint]int)}
}

func (m *memEntitlementStore) Grant(userID, petID uint) error {
	key := [2]uint{userID, petID}
	if _, ok := m.pairs[key]; !ok {
		m.pairs[key] = 0
	}
	m.pairs[key]++
	return nil
}

func (m *memEntitlementStore) Has(userID, petID uint) (bool, error) {
	_, ok := m.pairs[[2]uint{userID, petID}]
	return ok, nil
}

func (m *memEntitlementStore) ListPetIDs(userID uint) ([]uint, error) {
	var ids []uint
	for k := range m.pairs {
		if k[0] == userID {
			ids = append(ids, k[1])
		}
	}
	return ids, nil
}

// fakeGateway records calls and can be told to fail.
type fakeGateway struct {
	orderID      string
	refundID     string
	createCalls  int
	refundCalls  int
	lastAmount   int64
	lastCurrency string
	lastReceipt  string
	err          error
}

func (f *fakeGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*gateway.Order, error) {
	f.createCalls++
	f.lastAmount = amountMinor
	f.lastCurrency = currency
	f.lastReceipt = receipt
	if f.err != nil {
		return nil, f.err
	}
	id := f.orderID
	if id == "" {
		id = fmt.Sprintf("order_test_%d", f.createCalls)
	}
	return &gateway.Order{ID: id, AmountMinor: amountMinor, Currency: currency, Receipt: receipt, Status: "created"}, nil
}

func (f *fakeGateway) Refund(ctx context.Context, gatewayPaymentID string, amountMinor int64, notes map[string]string) (*gateway.Refund, error) {
	f.refundCalls++
	f.lastAmount = amountMinor
	if f.err != nil {
		return nil, f.err
	}
	id := f.refundID
	if id == "" {
		id = "rfnd_test_1"
	}
	return &gateway.Refund{ID: id, PaymentID: gatewayPaymentID, AmountMinor: amountMinor, Status: "processed"}, nil
}

// memPetStore serves the listings order creation resolves against.
type memPetStore struct {
	pets map[uint]*models.Pet
}

func (m *memPetStore) GetByID(id uint) (*models.Pet, error) {
	if p, ok := m.pets[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type memUserStore struct {
	users map[uint]*models.User
}

func (m *memUserStore) GetByID(id uint) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

const testKeySecret = "test_secret"

func newTestPaymentService(gw gateway.Client) (*PaymentService, *memPaymentStore, *memEntitlementStore) {
	cfg := &config.GatewayConfig{
		KeySecret:  testKeySecret,
		Currency:   "INR",
		PendingTTL: 30 * time.Minute,
	}
	payments := newMemPaymentStore()
	entitlements := newMemEntitlementStore()
	pets := &memPetStore{pets: map[uint]*models.Pet{
		13: {ID: 13, Name: "Biscuit", ServiceType: domain.ServiceAdoption, PriceMinor: 25000, Stock: 1},
		42: {ID: 42, Name: "Momo", ServiceType: domain.ServiceAdoption, PriceMinor: 25000, Stock: 1},
	}}
	users := &memUserStore{users: map[uint]*models.User{
		7: {ID: 7, Email: "petlover@example.com", Role: domain.RoleUser},
		9: {ID: 9, Email: "adopter@example.com", Role: domain.RoleUser},
	}}
	return NewPaymentService(cfg, payments, entitlements, pets, users, gw), payments, entitlements
}

func uintPtr(v uint) *uint { return &v }

func TestCreateOrderConvertsToMinorUnits(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, payments, _ := newTestPaymentService(gw)

	res, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 250, PetID: uintPtr(42), ServiceType: domain.ServiceAdoption})
	require.NoError(t, err)
	assert.Equal(t, int64(25000), gw.lastAmount)
	assert.Equal(t, "INR", gw.lastCurrency)
	assert.True(t, strings.HasPrefix(gw.lastReceipt, "rcpt_"))
	assert.Equal(t, "order_abc", res.Order.ID)

	p, err := payments.GetByOrderID("order_abc")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, p.Status)
	assert.Equal(t, int64(25000), p.AmountMinor)
	assert.Equal(t, uint(7), p.UserID)
	assert.Nil(t, p.GatewayPaymentID)
}

func TestCreateOrderRejectsInvalidAmount(t *testing.T) {
	gw := &fakeGateway{}
	svc, payments, _ := newTestPaymentService(gw)

	for _, amount := range []float64{0, -5} {
		_, err := svc.CreateOrder(context.Background(), 1, OrderInput{Amount: amount})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	assert.Equal(t, 0, gw.createCalls)
	assert.Empty(t, payments.payments)
}

func TestCreateOrderGatewayFailurePersistsNothing(t *testing.T) {
	gw := &fakeGateway{err: &gateway.Error{StatusCode: 502, Message: "bad gateway"}}
	svc, payments, _ := newTestPaymentService(gw)

	_, err := svc.CreateOrder(context.Background(), 1, OrderInput{Amount: 100})
	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Empty(t, payments.payments)
}

func TestCreateOrderUnknownPet(t *testing.T) {
	gw := &fakeGateway{}
	svc, payments, _ := newTestPaymentService(gw)

	_, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 100, PetID: uintPtr(99)})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, gw.createCalls)
	assert.Empty(t, payments.payments)
}

func TestCreateOrderInheritsListingServiceType(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, payments, _ := newTestPaymentService(gw)

	_, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 100, PetID: uintPtr(42)})
	require.NoError(t, err)
	p, _ := payments.GetByOrderID("order_abc")
	assert.Equal(t, domain.ServiceAdoption, p.ServiceType)
}

func TestVerifyPaymentIdempotent(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, payments, entitlements := newTestPaymentService(gw)

	_, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 250, PetID: uintPtr(42)})
	require.NoError(t, err)

	sig := gateway.SignPayment("order_abc", "pay_xyz", testKeySecret)
	for i := 0; i < 2; i++ {
		p, err := svc.VerifyPayment(context.Background(), 7, "order_abc", "pay_xyz", sig, nil)
		require.NoError(t, err, "call %d", i+1)
		assert.Equal(t, domain.PaymentCompleted, p.Status)
		require.NotNil(t, p.GatewayPaymentID)
		assert.Equal(t, "pay_xyz", *p.GatewayPaymentID)
	}

	p, err := payments.GetByOrderID("order_abc")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, p.Status)
	assert.Equal(t, sig, p.Signature)

	ids, _ := entitlements.ListPetIDs(7)
	assert.Equal(t, []uint{42}, ids)
	// Exactly one row was appended across both calls.
	assert.Equal(t, 1, entitlements.pairs[[2]uint{7, 42}])
}

func TestVerifyPaymentBadSignature(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, payments, entitlements := newTestPaymentService(gw)

	_, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 250, PetID: uintPtr(42)})
	require.NoError(t, err)

	_, err = svc.VerifyPayment(context.Background(), 7, "order_abc", "pay_xyz", "deadbeef", nil)
	assert.ErrorIs(t, err, ErrVerificationFailed)

	// Record untouched: the client may retry with correct data.
	p, _ := payments.GetByOrderID("order_abc")
	assert.Equal(t, domain.PaymentPending, p.Status)
	has, _ := entitlements.Has(7, 42)
	assert.False(t, has)
}

func TestVerifyPersistsResolvedTarget(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, payments, entitlements := newTestPaymentService(gw)

	// Order created without a target; the client names one at verify time.
	_, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 250})
	require.NoError(t, err)

	sig := gateway.SignPayment("order_abc", "pay_xyz", testKeySecret)
	p, err := svc.VerifyPayment(context.Background(), 7, "order_abc", "pay_xyz", sig, uintPtr(42))
	require.NoError(t, err)
	require.NotNil(t, p.PetID)
	assert.Equal(t, uint(42), *p.PetID)

	// The target landed on the ledger row, not just the projection.
	stored, _ := payments.GetByOrderID("order_abc")
	require.NotNil(t, stored.PetID)
	assert.Equal(t, uint(42), *stored.PetID)

	// So wiping the projection and replaying the ledger restores the grant.
	entitlements.pairs = make(map[[2]uint]int)
	n, err := svc.RebuildEntitlements(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	has, _ := entitlements.Has(7, 42)
	assert.True(t, has)
}

func TestVerifyPaymentUnknownOrder(t *testing.T) {
	svc, _, _ := newTestPaymentService(&fakeGateway{})
	sig := gateway.SignPayment("order_missing", "pay_xyz", testKeySecret)
	_, err := svc.VerifyPayment(context.Background(), 7, "order_missing", "pay_xyz", sig, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWebhookReplaySafe(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, payments, entitlements := newTestPaymentService(gw)

	_, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 250, PetID: uintPtr(42)})
	require.NoError(t, err)

	evt := GatewayEvent{Kind: domain.EventPaymentCaptured, GatewayPaymentID: "pay_xyz", OrderID: "order_abc"}
	require.NoError(t, svc.HandleGatewayEvent(context.Background(), evt))
	require.NoError(t, svc.HandleGatewayEvent(context.Background(), evt))

	p, _ := payments.GetByOrderID("order_abc")
	assert.Equal(t, domain.PaymentCompleted, p.Status)
	ids, _ := entitlements.ListPetIDs(7)
	assert.Equal(t, []uint{42}, ids)
	assert.Equal(t, 1, entitlements.pairs[[2]uint{7, 42}])
}

func TestVerifyAndWebhookConvergeInEitherOrder(t *testing.T) {
	sig := gateway.SignPayment("order_abc", "pay_xyz", testKeySecret)
	evt := GatewayEvent{Kind: domain.EventPaymentCaptured, GatewayPaymentID: "pay_xyz", OrderID: "order_abc"}

	run := func(t *testing.T, webhookFirst bool) {
		gw := &fakeGateway{orderID: "order_abc"}
		svc, payments, entitlements := newTestPaymentService(gw)
		_, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 250, PetID: uintPtr(42)})
		require.NoError(t, err)

		if webhookFirst {
			require.NoError(t, svc.HandleGatewayEvent(context.Background(), evt))
		}
		p, err := svc.VerifyPayment(context.Background(), 7, "order_abc", "pay_xyz", sig, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentCompleted, p.Status)
		if !webhookFirst {
			require.NoError(t, svc.HandleGatewayEvent(context.Background(), evt))
		}

		final, _ := payments.GetByOrderID("order_abc")
		assert.Equal(t, domain.PaymentCompleted, final.Status)
		ids, _ := entitlements.ListPetIDs(7)
		assert.Equal(t, []uint{42}, ids)
		assert.Equal(t, 1, entitlements.pairs[[2]uint{7, 42}])
	}

	t.Run("verify then webhook", func(t *testing.T) { run(t, false) })
	t.Run("webhook then verify", func(t *testing.T) { run(t, true) })
}

func TestWebhookFailedEvent(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, payments, _ := newTestPaymentService(gw)
	_, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 250})
	require.NoError(t, err)

	evt := GatewayEvent{Kind: domain.EventPaymentFailed, GatewayPaymentID: "pay_xyz", OrderID: "order_abc"}
	require.NoError(t, svc.HandleGatewayEvent(context.Background(), evt))
	p, _ := payments.GetByOrderID("order_abc")
	assert.Equal(t, domain.PaymentFailed, p.Status)

	// Replay is a no-op, and a failed event never downgrades completed.
	require.NoError(t, svc.HandleGatewayEvent(context.Background(), evt))
	p, _ = payments.GetByOrderID("order_abc")
	assert.Equal(t, domain.PaymentFailed, p.Status)
}

func TestWebhookFailedDoesNotDowngradeCompleted(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, payments, _ := newTestPaymentService(gw)
	_, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 250})
	require.NoError(t, err)

	captured := GatewayEvent{Kind: domain.EventPaymentCaptured, GatewayPaymentID: "pay_xyz", OrderID: "order_abc"}
	require.NoError(t, svc.HandleGatewayEvent(context.Background(), captured))

	failed := GatewayEvent{Kind: domain.EventPaymentFailed, GatewayPaymentID: "pay_xyz", OrderID: "order_abc"}
	require.NoError(t, svc.HandleGatewayEvent(context.Background(), failed))

	p, _ := payments.GetByOrderID("order_abc")
	assert.Equal(t, domain.PaymentCompleted, p.Status)
}

func TestWebhookUnknownEventIgnored(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, payments, _ := newTestPaymentService(gw)
	_, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 250})
	require.NoError(t, err)

	evt := GatewayEvent{Kind: "order.paid", GatewayPaymentID: "pay_xyz", OrderID: "order_abc"}
	require.NoError(t, svc.HandleGatewayEvent(context.Background(), evt))
	p, _ := payments.GetByOrderID("order_abc")
	assert.Equal(t, domain.PaymentPending, p.Status)
}

func TestRefundRequiresCompletedPayment(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, payments, _ := newTestPaymentService(gw)
	res, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 250})
	require.NoError(t, err)

	// Pending: rejected before the gateway is called.
	_, _, err = svc.Refund(context.Background(), res.Payment.ID, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, gw.refundCalls)

	sig := gateway.SignPayment("order_abc", "pay_xyz", testKeySecret)
	_, err = svc.VerifyPayment(context.Background(), 7, "order_abc", "pay_xyz", sig, nil)
	require.NoError(t, err)

	p, _, err := svc.Refund(context.Background(), res.Payment.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRefunded, p.Status)
	assert.Equal(t, 1, gw.refundCalls)
	assert.Equal(t, int64(25000), gw.lastAmount)

	// Refunded: refunding again is rejected, gateway untouched.
	_, _, err = svc.Refund(context.Background(), res.Payment.ID, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 1, gw.refundCalls)

	final, _ := payments.GetByID(res.Payment.ID)
	assert.Equal(t, domain.PaymentRefunded, final.Status)
}

func TestRefundPartialAmountAndGatewayFailure(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, payments, _ := newTestPaymentService(gw)
	res, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 250})
	require.NoError(t, err)
	sig := gateway.SignPayment("order_abc", "pay_xyz", testKeySecret)
	_, err = svc.VerifyPayment(context.Background(), 7, "order_abc", "pay_xyz", sig, nil)
	require.NoError(t, err)

	over := 300.0
	_, _, err = svc.Refund(context.Background(), res.Payment.ID, &over, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// Gateway failure leaves the record completed.
	gw.err = &gateway.Error{StatusCode: 500, Message: "boom"}
	partial := 100.0
	_, _, err = svc.Refund(context.Background(), res.Payment.ID, &partial, nil)
	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	p, _ := payments.GetByID(res.Payment.ID)
	assert.Equal(t, domain.PaymentCompleted, p.Status)

	gw.err = nil
	p, refund, err := svc.Refund(context.Background(), res.Payment.ID, &partial, map[string]string{"reason": "requested"})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), gw.lastAmount)
	assert.Equal(t, domain.PaymentRefunded, p.Status)
	assert.NotEmpty(t, refund.ID)
}

func TestLateCaptureAfterExpiry(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, payments, _ := newTestPaymentService(gw)
	res, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 250, PetID: uintPtr(42)})
	require.NoError(t, err)

	// Backdate the row past the TTL, then sweep.
	payments.payments[res.Payment.ID].CreatedAt = time.Now().Add(-time.Hour)
	n, err := svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	p, _ := payments.GetByOrderID("order_abc")
	assert.Equal(t, domain.PaymentExpired, p.Status)

	// Funds moved after all: the late capture still wins.
	evt := GatewayEvent{Kind: domain.EventPaymentCaptured, GatewayPaymentID: "pay_xyz", OrderID: "order_abc"}
	require.NoError(t, svc.HandleGatewayEvent(context.Background(), evt))
	p, _ = payments.GetByOrderID("order_abc")
	assert.Equal(t, domain.PaymentCompleted, p.Status)
}

func TestWebhookFailedAfterExpiry(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, payments, _ := newTestPaymentService(gw)
	res, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 250})
	require.NoError(t, err)

	payments.payments[res.Payment.ID].CreatedAt = time.Now().Add(-time.Hour)
	_, err = svc.ExpireStale(context.Background())
	require.NoError(t, err)

	// A failure notice landing after the sweep still settles the row.
	evt := GatewayEvent{Kind: domain.EventPaymentFailed, OrderID: "order_abc"}
	require.NoError(t, svc.HandleGatewayEvent(context.Background(), evt))
	p, _ := payments.GetByOrderID("order_abc")
	assert.Equal(t, domain.PaymentFailed, p.Status)

	// Failed is terminal: a capture arriving afterwards is ignored.
	captured := GatewayEvent{Kind: domain.EventPaymentCaptured, GatewayPaymentID: "pay_xyz", OrderID: "order_abc"}
	require.NoError(t, svc.HandleGatewayEvent(context.Background(), captured))
	p, _ = payments.GetByOrderID("order_abc")
	assert.Equal(t, domain.PaymentFailed, p.Status)
}

func TestRebuildEntitlementsUnknownUser(t *testing.T) {
	svc, _, _ := newTestPaymentService(&fakeGateway{})
	_, err := svc.RebuildEntitlements(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRebuildEntitlements(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, _, entitlements := newTestPaymentService(gw)
	_, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 250, PetID: uintPtr(42)})
	require.NoError(t, err)
	sig := gateway.SignPayment("order_abc", "pay_xyz", testKeySecret)
	_, err = svc.VerifyPayment(context.Background(), 7, "order_abc", "pay_xyz", sig, nil)
	require.NoError(t, err)

	// Simulate projection loss, then replay the ledger.
	entitlements.pairs = make(map[[2]uint]int)
	n, err := svc.RebuildEntitlements(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	has, _ := entitlements.Has(7, 42)
	assert.True(t, has)
}

func TestEndToEndCheckout(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, payments, entitlements := newTestPaymentService(gw)

	res, err := svc.CreateOrder(context.Background(), 9, OrderInput{Amount: 250, PetID: uintPtr(13), ServiceType: domain.ServiceAdoption})
	require.NoError(t, err)
	assert.Equal(t, int64(25000), gw.lastAmount)
	assert.Equal(t, domain.PaymentPending, res.Payment.Status)
	assert.Equal(t, "order_abc", res.Payment.OrderID)

	sig := gateway.SignPayment("order_abc", "pay_xyz", testKeySecret)
	p, err := svc.VerifyPayment(context.Background(), 9, "order_abc", "pay_xyz", sig, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, p.Status)
	require.NotNil(t, p.GatewayPaymentID)
	assert.Equal(t, "pay_xyz", *p.GatewayPaymentID)

	stored, _ := payments.GetByOrderID("order_abc")
	assert.Equal(t, int64(25000), stored.AmountMinor)
	ids, _ := entitlements.ListPetIDs(9)
	assert.Equal(t, []uint{13}, ids)
}

func TestVerifyAfterFailedIsRejected(t *testing.T) {
	gw := &fakeGateway{orderID: "order_abc"}
	svc, _, _ := newTestPaymentService(gw)
	_, err := svc.CreateOrder(context.Background(), 7, OrderInput{Amount: 250})
	require.NoError(t, err)
	require.NoError(t, svc.HandleGatewayEvent(context.Background(), GatewayEvent{Kind: domain.EventPaymentFailed, OrderID: "order_abc"}))

	sig := gateway.SignPayment("order_abc", "pay_xyz", testKeySecret)
	_, err = svc.VerifyPayment(context.Background(), 7, "order_abc", "pay_xyz", sig, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestWebhookUnknownReference(t *testing.T) {
	svc, _, _ := newTestPaymentService(&fakeGateway{})
	err := svc.HandleGatewayEvent(context.Background(), GatewayEvent{Kind: domain.EventPaymentCaptured, GatewayPaymentID: "pay_nope"})
	assert.True(t, errors.Is(err, ErrNotFound))
}
