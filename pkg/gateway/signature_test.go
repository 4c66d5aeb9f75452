package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignPaymentKnownVector(t *testing.T) {
	// Regression vector: HMAC-SHA256("order_abc|pay_xyz", "test_secret").
	got := SignPayment("order_abc", "pay_xyz", "test_secret")
	assert.Equal(t, "a734976b4a9aa4403181acd25d87b09ad8cb31f7d73be91e2bb9eb5c517ca319", got)
}

func TestSignPaymentInputSensitivity(t *testing.T) {
	base := SignPayment("order_abc", "pay_xyz", "test_secret")
	assert.NotEqual(t, base, SignPayment("order_abd", "pay_xyz", "test_secret"))
	assert.NotEqual(t, base, SignPayment("order_abc", "pay_xyZ", "test_secret"))
	assert.NotEqual(t, base, SignPayment("order_abc", "pay_xyz", "test_secreT"))
}

func TestVerifyPaymentSignature(t *testing.T) {
	sig := SignPayment("order_abc", "pay_xyz", "test_secret")
	assert.True(t, VerifyPaymentSignature("order_abc", "pay_xyz", sig, "test_secret"))
	assert.False(t, VerifyPaymentSignature("order_abc", "pay_xyz", sig, "other_secret"))
	assert.False(t, VerifyPaymentSignature("order_abc", "pay_other", sig, "test_secret"))
	assert.False(t, VerifyPaymentSignature("order_abc", "pay_xyz", "", "test_secret"))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_xyz","order_id":"order_abc"}}}}`)
	want := "4dae05965bfa2ca431129ca481e643eb3cc3fab4b3eec781fb296c7ae2e0b145"
	assert.True(t, VerifyWebhookSignature(body, want, "whsec"))
	assert.False(t, VerifyWebhookSignature(body, want, "wrong"))
	assert.False(t, VerifyWebhookSignature(append(body, ' '), want, "whsec"))
}
