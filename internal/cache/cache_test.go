package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"shop_back_end/internal/models"
)

func TestDisabledBackendsAreNoOps(t *testing.T) {
	ctx := context.Background()

	var limiter *RateLimiter
	ok, _, err := limiter.Allow(ctx, "cart_add:x", 1, time.Minute)
	if !ok || err != nil {
		t.Fatalf("nil limiter must allow, got %v %v", ok, err)
	}
	ok, _, err = NewRateLimiter(nil).Allow(ctx, "cart_add:x", 0, time.Minute)
	if !ok || err != nil {
		t.Fatalf("limiter without client must allow, got %v %v", ok, err)
	}

	pc := NewProductCache(nil)
	pc.Set(ctx, &models.Product{ID: uuid.New()})
	if _, hit := pc.Get(ctx, uuid.New()); hit {
		t.Fatal("disabled cache must miss")
	}
	pc.Invalidate(ctx, uuid.New())

	events := NewCartEvents(nil)
	if err := events.Publish(ctx, uuid.New(), "updated"); err != nil {
		t.Fatalf("Publish without redis: %v", err)
	}
	ch, stop := events.Subscribe(ctx, uuid.New())
	defer stop()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %q", ev)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("6f1c3a52-2a3e-4c55-9a43-1d1e0c6f2b11")
	if got := productKey(id); got != "product:6f1c3a52-2a3e-4c55-9a43-1d1e0c6f2b11" {
		t.Fatalf("productKey = %q", got)
	}
	if got := cartChannel(id); got != "cart:6f1c3a52-2a3e-4c55-9a43-1d1e0c6f2b11" {
		t.Fatalf("cartChannel = %q", got)
	}
}
