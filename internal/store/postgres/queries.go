package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shop_back_end/internal/models"
	"shop_back_end/internal/store"
)

type queries struct {
	db   dbtx
	inTx bool
}

type scanner interface {
	Scan(dest ...any) error
}

// Money travels as text so NUMERIC keeps its exact scale.
func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse money %q: %w", s, err)
	}
	return d, nil
}

// ---- users ----

const userColumns = `id, username, email, password, role, created_at`

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.Role, &u.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (q *queries) CreateUser(ctx context.Context, u *models.User) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Username, u.Email, u.Password, u.Role, u.CreatedAt)
	return mapErr(err)
}

func (q *queries) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (q *queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (q *queries) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := q.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, mapErr(rows.Err())
}

func (q *queries) UpdateUser(ctx context.Context, u *models.User) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE users SET username = $2, email = $3 WHERE id = $1`,
		u.ID, u.Username, u.Email)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---- products ----

const productColumns = `id, name, description, price::text, created_at, updated_at`

func scanProduct(row scanner) (*models.Product, error) {
	var (
		p     models.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	var err error
	if p.Price, err = parseMoney(price); err != nil {
		return nil, err
	}
	return &p, nil
}

func (q *queries) CreateProduct(ctx context.Context, p *models.Product) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO products (id, name, description, price, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6)`,
		p.ID, p.Name, p.Description, p.Price.String(), p.CreatedAt, p.UpdatedAt)
	return mapErr(err)
}

func (q *queries) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return scanProduct(q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (q *queries) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := q.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, mapErr(rows.Err())
}

func (q *queries) UpdateProduct(ctx context.Context, p *models.Product) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE products SET name = $2, description = $3, price = $4::numeric, updated_at = $5 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price.String(), p.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---- carts ----

func scanCart(row scanner) (*models.Cart, error) {
	var c models.Cart
	if err := row.Scan(&c.ID, &c.UserID, &c.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (q *queries) GetCartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return scanCart(q.db.QueryRow(ctx, `SELECT id, user_id, updated_at FROM carts WHERE user_id = $1`, userID))
}

// EnsureCart relies on the UNIQUE(user_id) constraint: a concurrent insert
// makes ours a no-op and the follow-up select returns the winner's row.
func (q *queries) EnsureCart(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Cart, error) {
	_, err := q.db.Exec(ctx,
		`INSERT INTO carts (id, user_id, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO NOTHING`,
		uuid.New(), userID, now)
	if err != nil {
		return nil, mapErr(err)
	}
	return q.GetCartByUser(ctx, userID)
}

func (q *queries) LockCart(ctx context.Context, cartID uuid.UUID) error {
	if !q.inTx {
		return nil
	}
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `SELECT id FROM carts WHERE id = $1 FOR UPDATE`, cartID).Scan(&id)
	return mapErr(err)
}

func (q *queries) TouchCart(ctx context.Context, cartID uuid.UUID, now time.Time) error {
	tag, err := q.db.Exec(ctx, `UPDATE carts SET updated_at = $2 WHERE id = $1`, cartID, now)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---- cart items ----

const cartItemColumns = `id, cart_id, product_id, quantity, updated_at`

func scanCartItem(row scanner) (*models.CartItem, error) {
	var it models.CartItem
	if err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &it, nil
}

func (q *queries) IncrementCartItem(ctx context.Context, cartID, productID uuid.UUID, qty int, now time.Time) (*models.CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx,
		`INSERT INTO cart_items (id, cart_id, product_id, quantity, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (cart_id, product_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
		 RETURNING `+cartItemColumns,
		uuid.New(), cartID, productID, qty, now))
}

func (q *queries) SetCartItemQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int, now time.Time) (*models.CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx,
		`UPDATE cart_items SET quantity = $3, updated_at = $4
		 WHERE cart_id = $1 AND product_id = $2
		 RETURNING `+cartItemColumns,
		cartID, productID, qty, now))
}

func (q *queries) DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) ListCartItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = $1 ORDER BY updated_at, id`, cartID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, mapErr(rows.Err())
}

func (q *queries) ListCartLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error) {
	rows, err := q.db.Query(ctx,
		`SELECT ci.id, ci.product_id, ci.quantity, p.name, p.description, p.price::text
		 FROM cart_items ci
		 JOIN products p ON p.id = ci.product_id
		 WHERE ci.cart_id = $1
		 ORDER BY ci.updated_at, ci.id`, cartID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		var (
			l     models.CartLine
			price string
		)
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Quantity, &l.Name, &l.Description, &price); err != nil {
			return nil, mapErr(err)
		}
		if l.Price, err = parseMoney(price); err != nil {
			return nil, err
		}
		l.Subtotal = l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		lines = append(lines, l)
	}
	return lines, mapErr(rows.Err())
}

func (q *queries) ClearCartItems(ctx context.Context, cartID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

// ---- orders ----

const orderColumns = `id, user_id, total::text, status, created_at`

func scanOrder(row scanner) (*models.Order, error) {
	var (
		o     models.Order
		total string
	)
	if err := row.Scan(&o.ID, &o.UserID, &total, &o.Status, &o.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	var err error
	if o.Total, err = parseMoney(total); err != nil {
		return nil, err
	}
	return &o, nil
}

func (q *queries) CreateOrder(ctx context.Context, o *models.Order) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO orders (id, user_id, total, status, created_at) VALUES ($1, $2, $3::numeric, $4, $5)`,
		o.ID, o.UserID, o.Total.String(), o.Status, o.CreatedAt)
	return mapErr(err)
}

func (q *queries) AddOrderItem(ctx context.Context, it *models.OrderItem) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO order_items (id, order_id, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4, $5::numeric)`,
		it.ID, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice.String())
	return mapErr(err)
}

func (q *queries) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, mapErr(rows.Err())
}

func (q *queries) GetOrderForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return scanOrder(q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID))
}

func (q *queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price::text FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var (
			it    models.OrderItem
			price string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price); err != nil {
			return nil, mapErr(err)
		}
		if it.UnitPrice, err = parseMoney(price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, mapErr(rows.Err())
}

func (q *queries) DeleteOrderForUser(ctx context.Context, userID, orderID uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
