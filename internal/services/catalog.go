package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/models"
	"shop_back_end/internal/store"
)

// ProductCache is a read-through cache for single products. It only serves
// display reads; checkout always reads the store.
type ProductCache interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, bool)
	Set(ctx context.Context, p *models.Product)
	Invalidate(ctx context.Context, id uuid.UUID)
}

type nopProductCache struct{}

func (nopProductCache) Get(context.Context, uuid.UUID) (*models.Product, bool) { return nil, false }
func (nopProductCache) Set(context.Context, *models.Product)                   {}
func (nopProductCache) Invalidate(context.Context, uuid.UUID)                  {}

// maxPrice is the largest value NUMERIC(12,2) holds.
var maxPrice = decimal.RequireFromString("9999999999.99")

type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
}

func (in *ProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperr.Validation("name is required")
	}
	if !in.Price.IsPositive() {
		return apperr.Validation("price must be greater than 0")
	}
	if !in.Price.Equal(in.Price.Round(2)) {
		return apperr.Validation("price must have at most 2 decimal places")
	}
	if in.Price.GreaterThan(maxPrice) {
		return apperr.Validationf("price must be at most %s", maxPrice.StringFixed(2))
	}
	return nil
}

type CatalogService struct {
	store store.Store
	cache ProductCache
	log   *slog.Logger
}

func NewCatalogService(st store.Store, cache ProductCache, logger *slog.Logger) *CatalogService {
	if cache == nil {
		cache = nopProductCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{store: st, cache: cache, log: logger}
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, rawID string) (*models.Product, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperr.NotFound("product")
	}
	if p, ok := s.cache.Get(ctx, id); ok {
		return p, nil
	}
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	s.cache.Set(ctx, p)
	return p, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	at := now()
	p := &models.Product{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, storeErr(err)
	}
	s.log.Info("product created", "product_id", p.ID, "price", p.Price.StringFixed(2))
	return p, nil
}

// UpdateProduct replaces name, description and price. Existing orders keep
// the price they were placed at.
func (s *CatalogService) UpdateProduct(ctx context.Context, rawID string, in ProductInput) (*models.Product, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperr.NotFound("product")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &models.Product{ID: id, Name: in.Name, Description: in.Description, Price: in.Price, UpdatedAt: now()}
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, notFound(err, "product")
	}
	s.cache.Invalidate(ctx, id)

	updated, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return updated, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return apperr.NotFound("product")
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return notFound(err, "product")
	}
	s.cache.Invalidate(ctx, id)
	return nil
}
