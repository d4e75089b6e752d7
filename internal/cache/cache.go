package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"shop_back_end/internal/models"
)

const ProductCacheTTL = 10 * time.Minute

// ProductCache keeps JSON copies of products under "product:<id>". Redis
// errors are logged and treated as misses.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client) *ProductCache {
	return &ProductCache{client: client, ttl: ProductCacheTTL}
}

func productKey(id uuid.UUID) string { return "product:" + id.String() }

func (c *ProductCache) Get(ctx context.Context, id uuid.UUID) (*models.Product, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("product cache read failed", "product_id", id, "err", err)
		}
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *ProductCache) Set(ctx context.Context, p *models.Product) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, productKey(p.ID), data, c.ttl).Err(); err != nil {
		slog.Warn("product cache write failed", "product_id", p.ID, "err", err)
	}
}

func (c *ProductCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, productKey(id)).Err(); err != nil {
		slog.Warn("product cache invalidation failed", "product_id", id, "err", err)
	}
}
