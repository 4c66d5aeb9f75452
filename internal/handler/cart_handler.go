package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"pawmart/internal/middleware"
	"pawmart/internal/service"

	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	carts *service.CartService
}

func NewCartHandler(carts *service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// Add merges the posted quantity/price into the user's line item for the pet.
// price is the incremental contribution for the added quantity, in major
// currency units.
func (h *CartHandler) Add(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		PetID    uint    `json:"pet_id" binding:"required"`
		Price    float64 `json:"price" binding:"required,gt=0"`
		Quantity int     `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	priceMinor := int64(math.Round(req.Price * 100))
	item, count, err := h.carts.AddItem(c.Request.Context(), userID, req.PetID, priceMinor, req.Quantity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add to cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "cart_count": count})
}

// Decrement removes one unit from the line item; at quantity one the row is
// removed entirely.
func (h *CartHandler) Decrement(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		PetID uint    `json:"pet_id" binding:"required"`
		Price float64 `json:"price" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	priceMinor := int64(math.Round(req.Price * 100))
	item, err := h.carts.DecrementItem(c.Request.Context(), userID, req.PetID, priceMinor)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cart item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update cart"})
		return
	}
	if item == nil {
		c.JSON(http.StatusOK, gin.H{"removed": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *CartHandler) Remove(c *gin.Context) {
	userID := middleware.GetUserID(c)
	itemID, err := strconv.ParseUint(c.Param("item_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}
	count, err := h.carts.RemoveItem(c.Request.Context(), userID, uint(itemID))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cart item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove cart item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart_count": count})
}

func (h *CartHandler) Clear(c *gin.Context) {
	userID := middleware.GetUserID(c)
	count, err := h.carts.ClearCart(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart_count": count})
}

func (h *CartHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	items, err := h.carts.FetchCart(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "cart_count": len(items)})
}
