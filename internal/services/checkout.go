package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/models"
	"shop_back_end/internal/store"
)

// Notifier tells a customer that an order was placed.
type Notifier interface {
	OrderPlaced(ctx context.Context, to string, order *models.Order) error
}

// CheckoutObserver counts checkout outcomes.
type CheckoutObserver interface {
	ObserveCheckout(result string)
}

type nopObserver struct{}

func (nopObserver) ObserveCheckout(string) {}

const notifyTimeout = 30 * time.Second

type CheckoutService struct {
	store    store.Store
	events   Publisher
	notifier Notifier
	observer CheckoutObserver
	log      *slog.Logger

	pending sync.WaitGroup
}

type CheckoutOption func(*CheckoutService)

func WithPublisher(p Publisher) CheckoutOption {
	return func(s *CheckoutService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithNotifier(n Notifier) CheckoutOption {
	return func(s *CheckoutService) { s.notifier = n }
}

func WithObserver(o CheckoutObserver) CheckoutOption {
	return func(s *CheckoutService) {
		if o != nil {
			s.observer = o
		}
	}
}

func NewCheckoutService(st store.Store, logger *slog.Logger, opts ...CheckoutOption) *CheckoutService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &CheckoutService{
		store:    st,
		events:   nopPublisher{},
		observer: nopObserver{},
		log:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout converts the user's cart into a pending order. Prices are read
// inside the transaction and frozen on the order items; the cart is emptied
// in the same transaction. Either all of it commits or none of it does.
func (s *CheckoutService) Checkout(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := inTx(ctx, s.store, func(q store.Queries) error {
		var err error
		order, err = s.convert(ctx, q, userID)
		return err
	})
	if err != nil {
		s.observer.ObserveCheckout(apperr.KindOf(err).String())
		return nil, err
	}
	s.observer.ObserveCheckout("ok")

	if err := s.events.Publish(ctx, userID, EventCheckedOut); err != nil {
		s.log.Warn("cart event publish failed", "user_id", userID, "event", EventCheckedOut, "err", err)
	}
	s.notify(ctx, userID, order)

	s.log.Info("order placed", "order_id", order.ID, "user_id", userID, "total", order.Total.StringFixed(2), "items", len(order.Items))
	return order, nil
}

func (s *CheckoutService) convert(ctx context.Context, q store.Queries, userID uuid.UUID) (*models.Order, error) {
	cart, err := q.GetCartByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Validation("no cart")
	}
	if err != nil {
		return nil, storeErr(err)
	}
	// a racing checkout waits here and then reads the emptied cart
	if err := q.LockCart(ctx, cart.ID); err != nil {
		return nil, storeErr(err)
	}

	items, err := q.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, storeErr(err)
	}
	if len(items) == 0 {
		return nil, apperr.Validation("empty cart")
	}

	at := now()
	order := &models.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    models.StatusPending,
		CreatedAt: at,
		Total:     decimal.Zero,
		Items:     make([]models.OrderItem, 0, len(items)),
	}
	for _, it := range items {
		p, err := q.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, notFound(err, "product")
		}
		order.Total = order.Total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		order.Items = append(order.Items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
		})
	}

	if err := q.CreateOrder(ctx, order); err != nil {
		return nil, storeErr(err)
	}
	for i := range order.Items {
		if err := q.AddOrderItem(ctx, &order.Items[i]); err != nil {
			return nil, storeErr(err)
		}
	}
	if _, err := q.ClearCartItems(ctx, cart.ID); err != nil {
		return nil, storeErr(err)
	}
	if err := q.TouchCart(ctx, cart.ID, at); err != nil {
		return nil, storeErr(err)
	}
	return order, nil
}

// notify sends the confirmation in the background. It never affects the
// committed order.
func (s *CheckoutService) notify(ctx context.Context, userID uuid.UUID, order *models.Order) {
	if s.notifier == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		user, err := s.store.GetUserByID(ctx, userID)
		if err != nil {
			s.log.Warn("order confirmation skipped", "order_id", order.ID, "err", err)
			return
		}
		if err := s.notifier.OrderPlaced(ctx, user.Email, order); err != nil {
			s.log.Error("order confirmation failed", "order_id", order.ID, "err", err)
		}
	}()
}

// Drain waits for background confirmations to finish.
func (s *CheckoutService) Drain() {
	s.pending.Wait()
}
