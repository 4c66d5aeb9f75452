package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"pawmart/config"
	"pawmart/internal/service"
	"pawmart/pkg/gateway"

	"github.com/gin-gonic/gin"
)

// gatewayWebhookEnvelope is the gateway's event envelope. Only the fields the
// reconciliation engine needs are read.
type gatewayWebhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type GatewayWebhookHandler struct {
	cfg      *config.Config
	payments *service.PaymentService
}

func NewGatewayWebhookHandler(cfg *config.Config, payments *service.PaymentService) *GatewayWebhookHandler {
	return &GatewayWebhookHandler{cfg: cfg, payments: payments}
}

// Handle ingests an asynchronous gateway event. The raw body is authenticated
// before any parsing; replays are safe, so the gateway may retry freely on
// 5xx.
func (h *GatewayWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}
	sig := c.GetHeader("X-Gateway-Signature")
	if !gateway.VerifyWebhookSignature(body, sig, h.cfg.Gateway.WebhookSecret) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid signature"})
		return
	}
	var envelope gatewayWebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return
	}
	evt := service.GatewayEvent{
		Kind:             envelope.Event,
		GatewayPaymentID: envelope.Payload.Payment.Entity.ID,
		OrderID:          envelope.Payload.Payment.Entity.OrderID,
	}
	if err := h.payments.HandleGatewayEvent(c.Request.Context(), evt); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			// Unknown reference; acknowledge so the gateway stops retrying.
			log.Printf("[WEBHOOK] no payment for event=%s payment_id=%s order_id=%s", evt.Kind, evt.GatewayPaymentID, evt.OrderID)
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		log.Printf("[WEBHOOK] event=%s error: %v", evt.Kind, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
