package handler

import (
	"errors"
	"net/http"
	"strconv"

	"pawmart/config"
	"pawmart/internal/middleware"
	"pawmart/internal/service"
	"pawmart/pkg/gateway"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	cfg      *config.Config
	payments *service.PaymentService
}

func NewPaymentHandler(cfg *config.Config, payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{cfg: cfg, payments: payments}
}

// CreateOrder starts a checkout: creates the gateway order and the pending
// ledger row, and returns both plus the public key id the client-side
// checkout widget needs.
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		Amount      float64 `json:"amount" binding:"required"`
		Currency    string  `json:"currency"`
		Receipt     string  `json:"receipt"`
		PetID       *uint   `json:"pet_id"`
		ServiceType string  `json:"service_type" binding:"omitempty,oneof=adoption mating boarding other"`
		Method      string  `json:"method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.payments.CreateOrder(c.Request.Context(), userID, service.OrderInput{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
		PetID:       req.PetID,
		ServiceType: req.ServiceType,
		Method:      req.Method,
	})
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"order_id":     res.Order.ID,
		"amount_minor": res.Order.AmountMinor,
		"currency":     res.Order.Currency,
		"receipt":      res.Order.Receipt,
		"payment_id":   res.Payment.ID,
		"key_id":       h.cfg.Gateway.KeyID,
	})
}

// Verify checks the signature the client received after checkout and marks
// the payment completed. Safe to call repeatedly with the same inputs.
func (h *PaymentHandler) Verify(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		OrderID          string `json:"order_id" binding:"required"`
		GatewayPaymentID string `json:"gateway_payment_id" binding:"required"`
		Signature        string `json:"signature" binding:"required"`
		PetID            *uint  `json:"pet_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.payments.VerifyPayment(c.Request.Context(), userID, req.OrderID, req.GatewayPaymentID, req.Signature, req.PetID)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": p.Status, "payment": p})
}

// Refund refunds a completed payment, optionally partial. Admin only.
func (h *PaymentHandler) Refund(c *gin.Context) {
	paymentID, err := strconv.ParseUint(c.Param("payment_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}
	var req struct {
		Amount *float64          `json:"amount"`
		Notes  map[string]string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, refund, err := h.payments.Refund(c.Request.Context(), uint(paymentID), req.Amount, req.Notes)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": p.Status, "refund_id": refund.ID, "payment": p})
}

// List returns the caller's payment history.
func (h *PaymentHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.payments.ListPayments(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": list})
}

// Entitlements returns the pet ids the caller has paid for.
func (h *PaymentHandler) Entitlements(c *gin.Context) {
	userID := middleware.GetUserID(c)
	ids, err := h.payments.Entitlements(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list entitlements"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pet_ids": ids})
}

// RebuildEntitlements replays a user's completed payments into the
// entitlement projection. Admin recovery tool for a diverged projection.
func (h *PaymentHandler) RebuildEntitlements(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	n, err := h.payments.RebuildEntitlements(c.Request.Context(), uint(userID))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rebuild failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"granted": n})
}

func respondPaymentError(c *gin.Context, err error) {
	var gwErr *gateway.Error
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrVerificationFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &gwErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway error"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
