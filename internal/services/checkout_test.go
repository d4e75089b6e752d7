package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/models"
	"shop_back_end/internal/services"
	"shop_back_end/internal/store"
)

func TestCheckout_SnapshotsPricesAndClearsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	p1 := f.product(t, "P1", "10")
	p2 := f.product(t, "P2", "5")
	f.add(t, user, p1.ID, 2)
	f.add(t, user, p2.ID, 1)

	order, err := f.checkout.Checkout(ctx, user)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	mustDecimal(t, order.Total, "25")
	if order.Status != models.StatusPending {
		t.Fatalf("expected pending status, got %q", order.Status)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 order items, got %d", len(order.Items))
	}
	qty := map[uuid.UUID]int{}
	for _, it := range order.Items {
		qty[it.ProductID] = it.Quantity
	}
	if qty[p1.ID] != 2 || qty[p2.ID] != 1 {
		t.Fatalf("unexpected quantities: %+v", qty)
	}

	if n := len(f.cartItems(t, user)); n != 0 {
		t.Fatalf("expected empty cart after checkout, got %d lines", n)
	}
	if _, err := f.store.GetCartByUser(ctx, user); err != nil {
		t.Fatalf("cart row must persist after checkout: %v", err)
	}

	stored, err := f.orders.GetOrder(ctx, user, order.ID.String())
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	sum := decimal.Zero
	for _, it := range stored.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	if !sum.Equal(stored.Total) {
		t.Fatalf("stored total %s does not match items %s", stored.Total, sum)
	}
	if f.observer.Count("ok") != 1 {
		t.Fatalf("expected one ok observation")
	}
}

func TestCheckout_NoCartOrEmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.checkout.Checkout(ctx, user)
	if !apperr.Is(err, apperr.KindValidation) || apperr.Message(err) != "no cart" {
		t.Fatalf("expected validation no cart, got %v", err)
	}

	if _, err := f.cart.GetOrCreateCart(ctx, user); err != nil {
		t.Fatal(err)
	}
	_, err = f.checkout.Checkout(ctx, user)
	if !apperr.Is(err, apperr.KindValidation) || apperr.Message(err) != "empty cart" {
		t.Fatalf("expected validation empty cart, got %v", err)
	}

	orders, err := f.orders.ListOrders(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no orders, got %d", len(orders))
	}
	if f.observer.Count("validation") != 2 {
		t.Fatalf("expected two validation observations")
	}
}

func TestCheckout_ConcurrentDoubleCheckoutCreatesOneOrder(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	p := f.product(t, "P", "3.00")
	f.add(t, user, p.ID, 2)

	const N = 8
	var (
		succeeded  atomic.Int32
		emptyCarts atomic.Int32
	)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < N; i++ {
		g.Go(func() error {
			_, err := f.checkout.Checkout(ctx, user)
			switch {
			case err == nil:
				succeeded.Add(1)
			case apperr.Message(err) == "empty cart":
				emptyCarts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected checkout error: %v", err)
	}
	if succeeded.Load() != 1 || emptyCarts.Load() != N-1 {
		t.Fatalf("expected 1 success and %d empty carts, got %d and %d", N-1, succeeded.Load(), emptyCarts.Load())
	}

	orders, err := f.orders.ListOrders(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected exactly one order, got %d", len(orders))
	}
}

func TestCheckout_PriceChangeAfterCheckoutLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	p := f.product(t, "P", "10.00")
	f.add(t, user, p.ID, 3)

	order, err := f.checkout.Checkout(ctx, user)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if _, err := f.catalog.UpdateProduct(ctx, p.ID.String(), services.ProductInput{
		Name:  "P",
		Price: decimal.RequireFromString("99.99"),
	}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}

	stored, err := f.orders.GetOrder(ctx, user, order.ID.String())
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	mustDecimal(t, stored.Total, "30")
	mustDecimal(t, stored.Items[0].UnitPrice, "10")
}

func TestCheckout_FailureRollsBackEverything(t *testing.T) {
	cases := []struct {
		name     string
		method   string
		err      error
		wantKind apperr.Kind
	}{
		{"order item insert fails", "AddOrderItem", errors.New("disk full"), apperr.KindInternal},
		{"cart clear fails", "ClearCartItems", errors.New("connection reset"), apperr.KindInternal},
		{"product vanished", "GetProduct", store.ErrNotFound, apperr.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			user := uuid.New()
			a := f.product(t, "A", "10")
			b := f.product(t, "B", "5")
			f.add(t, user, a.ID, 2)
			f.add(t, user, b.ID, 1)

			f.store.InjectFault(tc.method, tc.err)
			_, err := f.checkout.Checkout(ctx, user)
			if apperr.KindOf(err) != tc.wantKind {
				t.Fatalf("expected %s error, got %v", tc.wantKind, err)
			}

			orders, _ := f.orders.ListOrders(ctx, user)
			if len(orders) != 0 {
				t.Fatalf("expected no order after rollback, got %d", len(orders))
			}
			items := f.cartItems(t, user)
			if len(items) != 2 {
				t.Fatalf("expected cart untouched with 2 lines, got %+v", items)
			}
		})
	}
}

func TestCheckout_RetriesSerializationFailureOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	p := f.product(t, "P", "4.00")
	f.add(t, user, p.ID, 1)

	f.store.InjectFault("CreateOrder", store.ErrSerialization)
	order, err := f.checkout.Checkout(ctx, user)
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	mustDecimal(t, order.Total, "4")

	orders, _ := f.orders.ListOrders(ctx, user)
	if len(orders) != 1 {
		t.Fatalf("expected one order, got %d", len(orders))
	}
}

func TestCheckout_SecondSerializationFailureIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	p := f.product(t, "P", "4.00")
	f.add(t, user, p.ID, 1)

	f.store.InjectFault("CreateOrder", store.ErrSerialization)
	f.store.InjectFault("CreateOrder", store.ErrSerialization)
	_, err := f.checkout.Checkout(ctx, user)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if n := len(f.cartItems(t, user)); n != 1 {
		t.Fatalf("expected cart untouched, got %d lines", n)
	}
	if f.observer.Count("conflict") != 1 {
		t.Fatal("expected one conflict observation")
	}
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent map[string]uuid.UUID
}

func (n *fakeNotifier) OrderPlaced(_ context.Context, to string, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = make(map[string]uuid.UUID)
	}
	n.sent[to] = order.ID
	return nil
}

func TestCheckout_SendsConfirmationAndPublishes(t *testing.T) {
	notifier := &fakeNotifier{}
	f := newFixture(t, services.WithNotifier(notifier))
	ctx := context.Background()

	auth := services.NewAuthService(f.store, []byte("secret"), 0, discardLogger())
	user, err := auth.Register(ctx, services.RegisterInput{Username: "carol", Email: "carol@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	p := f.product(t, "P", "1.00")
	f.add(t, user.ID, p.ID, 1)

	order, err := f.checkout.Checkout(ctx, user.ID)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	f.checkout.Drain()

	notifier.mu.Lock()
	got := notifier.sent["carol@example.com"]
	notifier.mu.Unlock()
	if got != order.ID {
		t.Fatalf("expected confirmation for %s, got %s", order.ID, got)
	}

	events := f.events.Events()
	if last := events[len(events)-1]; last.Event != services.EventCheckedOut {
		t.Fatalf("expected checked_out event last, got %+v", last)
	}
}
