package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// RestClient talks to a Razorpay-style REST gateway using basic auth
// (key id / key secret).
type RestClient struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	client    *http.Client
}

func NewRestClient(baseURL, keyID, keySecret string, timeout time.Duration) *RestClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RestClient{
		BaseURL:   baseURL,
		KeyID:     keyID,
		KeySecret: keySecret,
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *RestClient) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error) {
	body := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}
	var out Order
	if err := c.post(ctx, "/v1/orders", body, &out); err != nil {
		return nil, err
	}
	log.Printf("[GATEWAY] order created id=%s amount=%d %s receipt=%s", out.ID, out.AmountMinor, out.Currency, out.Receipt)
	return &out, nil
}

func (c *RestClient) Refund(ctx context.Context, gatewayPaymentID string, amountMinor int64, notes map[string]string) (*Refund, error) {
	body := map[string]interface{}{}
	if amountMinor > 0 {
		body["amount"] = amountMinor
	}
	if len(notes) > 0 {
		body["notes"] = notes
	}
	var out Refund
	path := fmt.Sprintf("/v1/payments/%s/refund", gatewayPaymentID)
	if err := c.post(ctx, path, body, &out); err != nil {
		return nil, err
	}
	log.Printf("[GATEWAY] refund created id=%s payment_id=%s amount=%d", out.ID, out.PaymentID, out.AmountMinor)
	return &out, nil
}

func (c *RestClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return &Error{Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return &Error{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Message: err.Error()}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &Error{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "malformed gateway response: " + err.Error()}
	}
	return nil
}
