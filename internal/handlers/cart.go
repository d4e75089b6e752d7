package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shop_back_end/internal/middleware"
	"shop_back_end/internal/services"
)

type CartHandler struct {
	cart     *services.CartService
	checkout *services.CheckoutService
	log      *slog.Logger
}

func NewCartHandler(cart *services.CartService, checkout *services.CheckoutService, logger *slog.Logger) *CartHandler {
	return &CartHandler{cart: cart, checkout: checkout, log: orDefault(logger)}
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"max=2147483647"`
}

type updateItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  *int      `json:"quantity" binding:"required,max=2147483647"`
}

type removeItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
}

// POST /cart/add
func (h *CartHandler) AddItem(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := h.cart.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product added to cart", "item": item})
}

// GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	view, err := h.cart.ListItems(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// PUT /cart/update
func (h *CartHandler) UpdateItem(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := h.cart.SetItemQuantity(c.Request.Context(), userID, req.ProductID, *req.Quantity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if item == nil {
		c.JSON(http.StatusOK, gin.H{"message": "product removed from cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "quantity updated", "item": item})
}

// DELETE /cart/remove
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req removeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.cart.RemoveItem(c.Request.Context(), userID, req.ProductID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product removed from cart"})
}

// DELETE /cart/clear
func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	if err := h.cart.ClearCart(c.Request.Context(), userID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}

// POST /cart/checkout
func (h *CartHandler) Checkout(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	order, err := h.checkout.Checkout(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Set(middleware.CtxAuditResourceID, order.ID.String())
	c.JSON(http.StatusCreated, gin.H{"message": "order created", "order": order})
}
