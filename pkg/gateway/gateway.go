package gateway

import (
	"context"
	"fmt"
)

// Order is a gateway-side order created ahead of checkout. Amounts are in the
// smallest currency unit.
type Order struct {
	ID          string `json:"id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

// Refund is the gateway's acknowledgement of a refund request.
type Refund struct {
	ID          string `json:"id"`
	PaymentID   string `json:"payment_id"`
	AmountMinor int64  `json:"amount"`
	Status      string `json:"status"`
}

// Client is the payment gateway capability the reconciliation engine depends
// on. Both calls go over the network and are bounded by the client timeout.
type Client interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error)
	Refund(ctx context.Context, gatewayPaymentID string, amountMinor int64, notes map[string]string) (*Refund, error)
}

// Error is returned for gateway-side failures (timeouts, 4xx/5xx responses).
type Error struct {
	StatusCode int // 0 for transport errors
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("gateway: %s", e.Message)
	}
	return fmt.Sprintf("gateway: %d %s", e.StatusCode, e.Message)
}
