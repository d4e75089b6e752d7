// Package store defines the persistence contract of the shop. Implementations
// live in store/postgres and store/memory.
package store

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"shop_back_end/internal/models"
)

var (
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is a unique constraint violation.
	ErrConflict = errors.New("store: conflict")
	// ErrSerialization is a serialization failure or deadlock; the
	// transaction can be retried from the start.
	ErrSerialization = errors.New("store: serialization failure")
	// ErrOutOfRange is a value that does not fit its column, such as a
	// merged quantity above the int4 range.
	ErrOutOfRange = errors.New("store: value out of range")
)

// MaxQuantity is the largest quantity a cart or order line can hold.
const MaxQuantity = math.MaxInt32

// Queries is the set of statements available both on the store and inside a
// transaction.
type Queries interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error

	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	GetCartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	// EnsureCart inserts the user's cart if absent and returns it.
	EnsureCart(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Cart, error)
	// LockCart takes the per-cart exclusive lock for the rest of the
	// transaction. Outside a transaction it is a no-op.
	LockCart(ctx context.Context, cartID uuid.UUID) error
	TouchCart(ctx context.Context, cartID uuid.UUID, now time.Time) error

	// IncrementCartItem creates the item or adds qty to its quantity.
	IncrementCartItem(ctx context.Context, cartID, productID uuid.UUID, qty int, now time.Time) (*models.CartItem, error)
	SetCartItemQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int, now time.Time) (*models.CartItem, error)
	DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) error
	ListCartItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	ListCartLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error)
	ClearCartItems(ctx context.Context, cartID uuid.UUID) (int64, error)

	CreateOrder(ctx context.Context, o *models.Order) error
	AddOrderItem(ctx context.Context, it *models.OrderItem) error
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	GetOrderForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	DeleteOrderForUser(ctx context.Context, userID, orderID uuid.UUID) error
}

type Store interface {
	Queries
	// WithinTx runs fn in a single transaction. A non-nil error from fn
	// rolls back every statement fn issued.
	WithinTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
	Close()
}
