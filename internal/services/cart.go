package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/models"
	"shop_back_end/internal/store"
)

// CartView is the cart as shown to its owner. Total uses live prices and is
// informational; the order total is fixed at checkout.
type CartView struct {
	Items []models.CartLine `json:"items"`
	Total decimal.Decimal   `json:"total"`
	Count int               `json:"count"`
}

type CartService struct {
	store  store.Store
	events Publisher
	log    *slog.Logger
}

func NewCartService(st store.Store, events Publisher, logger *slog.Logger) *CartService {
	if events == nil {
		events = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CartService{store: st, events: events, log: logger}
}

// GetOrCreateCart returns the user's cart, creating it on first use.
// Concurrent callers always get the same cart.
func (s *CartService) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.store.EnsureCart(ctx, userID, now())
	if err != nil {
		return nil, storeErr(err)
	}
	return cart, nil
}

// AddItem merges quantity into the user's line for productID.
func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, apperr.Validation("quantity must be greater than 0")
	}
	if quantity > store.MaxQuantity {
		return nil, apperr.Validationf("quantity must be at most %d", store.MaxQuantity)
	}

	var item *models.CartItem
	err := inTx(ctx, s.store, func(q store.Queries) error {
		at := now()
		cart, err := q.EnsureCart(ctx, userID, at)
		if err != nil {
			return err
		}
		if err := q.LockCart(ctx, cart.ID); err != nil {
			return err
		}
		if _, err := q.GetProduct(ctx, productID); err != nil {
			return notFound(err, "product")
		}
		item, err = q.IncrementCartItem(ctx, cart.ID, productID, quantity, at)
		if errors.Is(err, store.ErrOutOfRange) {
			return apperr.Validationf("quantity in cart cannot exceed %d", store.MaxQuantity)
		}
		if err != nil {
			// the product can vanish between the check and the insert
			return notFound(err, "product")
		}
		return q.TouchCart(ctx, cart.ID, at)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, userID, EventUpdated)
	return item, nil
}

// SetItemQuantity overwrites the quantity of an existing line. Zero removes
// the line, in which case the returned item is nil.
func (s *CartService) SetItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity < 0 {
		return nil, apperr.Validation("quantity must be 0 or greater")
	}
	if quantity > store.MaxQuantity {
		return nil, apperr.Validationf("quantity must be at most %d", store.MaxQuantity)
	}

	var item *models.CartItem
	err := inTx(ctx, s.store, func(q store.Queries) error {
		cart, err := s.lockedCart(ctx, q, userID)
		if err != nil {
			return err
		}
		at := now()
		if quantity == 0 {
			if err := q.DeleteCartItem(ctx, cart.ID, productID); err != nil {
				return notFound(err, "cart item")
			}
			item = nil
		} else {
			item, err = q.SetCartItemQuantity(ctx, cart.ID, productID, quantity, at)
			if err != nil {
				return notFound(err, "cart item")
			}
		}
		return q.TouchCart(ctx, cart.ID, at)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, userID, EventUpdated)
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	err := inTx(ctx, s.store, func(q store.Queries) error {
		cart, err := s.lockedCart(ctx, q, userID)
		if err != nil {
			return err
		}
		if err := q.DeleteCartItem(ctx, cart.ID, productID); err != nil {
			return notFound(err, "cart item")
		}
		return q.TouchCart(ctx, cart.ID, now())
	})
	if err != nil {
		return err
	}

	s.publish(ctx, userID, EventUpdated)
	return nil
}

// ClearCart empties the user's cart. A user without a cart is a no-op.
func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	cleared := false
	err := inTx(ctx, s.store, func(q store.Queries) error {
		cart, err := s.lockedCart(ctx, q, userID)
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := q.ClearCartItems(ctx, cart.ID); err != nil {
			return err
		}
		cleared = true
		return q.TouchCart(ctx, cart.ID, now())
	})
	if err != nil {
		return err
	}

	if cleared {
		s.publish(ctx, userID, EventCleared)
	}
	return nil
}

// ListItems joins the cart lines with live product data.
func (s *CartService) ListItems(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	view := &CartView{Items: []models.CartLine{}, Total: decimal.Zero}

	cart, err := s.store.GetCartByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return view, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}

	lines, err := s.store.ListCartLines(ctx, cart.ID)
	if err != nil {
		return nil, storeErr(err)
	}
	for _, l := range lines {
		view.Total = view.Total.Add(l.Subtotal)
	}
	view.Items = lines
	view.Count = len(lines)
	return view, nil
}

func (s *CartService) lockedCart(ctx context.Context, q store.Queries, userID uuid.UUID) (*models.Cart, error) {
	cart, err := q.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "cart")
	}
	if err := q.LockCart(ctx, cart.ID); err != nil {
		return nil, notFound(err, "cart")
	}
	return cart, nil
}

func (s *CartService) publish(ctx context.Context, userID uuid.UUID, event string) {
	if err := s.events.Publish(ctx, userID, event); err != nil {
		s.log.Warn("cart event publish failed", "user_id", userID, "event", event, "err", err)
	}
}
