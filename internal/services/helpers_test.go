package services_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shop_back_end/internal/models"
	"shop_back_end/internal/services"
	"shop_back_end/internal/store/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedEvent struct {
	UserID uuid.UUID
	Event  string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(_ context.Context, userID uuid.UUID, event string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{UserID: userID, Event: event})
	return nil
}

func (p *fakePublisher) Events() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

type fakeObserver struct {
	mu      sync.Mutex
	results map[string]int
}

func (o *fakeObserver) ObserveCheckout(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = make(map[string]int)
	}
	o.results[result]++
}

func (o *fakeObserver) Count(result string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.results[result]
}

type fixture struct {
	store    *memory.Store
	events   *fakePublisher
	observer *fakeObserver
	cart     *services.CartService
	checkout *services.CheckoutService
	orders   *services.OrderService
	catalog  *services.CatalogService
}

func newFixture(t *testing.T, opts ...services.CheckoutOption) *fixture {
	t.Helper()
	st := memory.New()
	events := &fakePublisher{}
	observer := &fakeObserver{}
	logger := discardLogger()

	opts = append([]services.CheckoutOption{services.WithPublisher(events), services.WithObserver(observer)}, opts...)
	return &fixture{
		store:    st,
		events:   events,
		observer: observer,
		cart:     services.NewCartService(st, events, logger),
		checkout: services.NewCheckoutService(st, logger, opts...),
		orders:   services.NewOrderService(st),
		catalog:  services.NewCatalogService(st, nil, logger),
	}
}

func (f *fixture) product(t *testing.T, name, price string) *models.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), services.ProductInput{
		Name:  name,
		Price: decimal.RequireFromString(price),
	})
	if err != nil {
		t.Fatalf("CreateProduct(%s): %v", name, err)
	}
	return p
}

func (f *fixture) add(t *testing.T, userID, productID uuid.UUID, qty int) {
	t.Helper()
	if _, err := f.cart.AddItem(context.Background(), userID, productID, qty); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
}

func (f *fixture) cartItems(t *testing.T, userID uuid.UUID) []models.CartItem {
	t.Helper()
	ctx := context.Background()
	cart, err := f.store.GetCartByUser(ctx, userID)
	if err != nil {
		return nil
	}
	items, err := f.store.ListCartItems(ctx, cart.ID)
	if err != nil {
		t.Fatalf("ListCartItems: %v", err)
	}
	return items
}

func mustDecimal(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("got %s, want %s", got.String(), want)
	}
}
