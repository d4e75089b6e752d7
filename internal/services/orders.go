package services

import (
	"context"

	"github.com/google/uuid"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/models"
	"shop_back_end/internal/store"
)

// OrderService reads and deletes orders on behalf of their owner. An order
// owned by someone else is reported exactly like a missing one.
type OrderService struct {
	store store.Store
}

func NewOrderService(st store.Store) *OrderService {
	return &OrderService{store: st}
}

// ListOrders returns the user's orders, newest first, without items.
func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	orders, err := s.store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	return orders, nil
}

// GetOrder returns the order with its items. rawID comes straight from the
// URL; a malformed id is reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, userID uuid.UUID, rawID string) (*models.Order, error) {
	orderID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperr.NotFound("order")
	}
	order, err := s.store.GetOrderForUser(ctx, userID, orderID)
	if err != nil {
		return nil, notFound(err, "order")
	}
	items, err := s.store.ListOrderItems(ctx, order.ID)
	if err != nil {
		return nil, storeErr(err)
	}
	order.Items = items
	return order, nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, userID uuid.UUID, rawID string) error {
	orderID, err := uuid.Parse(rawID)
	if err != nil {
		return apperr.NotFound("order")
	}
	if err := s.store.DeleteOrderForUser(ctx, userID, orderID); err != nil {
		return notFound(err, "order")
	}
	return nil
}
