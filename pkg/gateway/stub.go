package gateway

import (
	"context"
	"fmt"
	"time"
)

// Stub is a no-op client for development when no gateway credentials are
// configured.
type Stub struct{}

func (s *Stub) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error) {
	return &Order{
		ID:          fmt.Sprintf("order_stub_%d", time.Now().UnixNano()),
		AmountMinor: amountMinor,
		Currency:    currency,
		Receipt:     receipt,
		Status:      "created",
	}, nil
}

func (s *Stub) Refund(ctx context.Context, gatewayPaymentID string, amountMinor int64, notes map[string]string) (*Refund, error) {
	return &Refund{
		ID:          fmt.Sprintf("rfnd_stub_%d", time.Now().UnixNano()),
		PaymentID:   gatewayPaymentID,
		AmountMinor: amountMinor,
		Status:      "processed",
	}, nil
}
