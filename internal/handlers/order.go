package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"shop_back_end/internal/middleware"
	"shop_back_end/internal/services"
)

type OrderHandler struct {
	orders *services.OrderService
	log    *slog.Logger
}

func NewOrderHandler(orders *services.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: orDefault(logger)}
}

// GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	orders, err := h.orders.ListOrders(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	order, err := h.orders.GetOrder(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// DELETE /orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	if err := h.orders.DeleteOrder(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order deleted"})
}
