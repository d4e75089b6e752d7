package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shop_back_end/internal/models"
	"shop_back_end/internal/store"
)

// queries runs against db. With a non-nil tx every write records its
// inverse so WithinTx can roll back.
type queries struct {
	db *db
	tx *txState
}

// record must be called with db.mu held.
func (q queries) record(undo func()) {
	if q.tx != nil {
		q.tx.undo = append(q.tx.undo, undo)
	}
}

// ---- users ----

func (q queries) CreateUser(ctx context.Context, u *models.User) error {
	if err := q.db.fault("CreateUser"); err != nil {
		return err
	}
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	for _, other := range q.db.users {
		if other.Username == u.Username || other.Email == u.Email {
			return store.ErrConflict
		}
	}
	q.db.users[u.ID] = *u
	id := u.ID
	q.record(func() { delete(q.db.users, id) })
	return nil
}

func (q queries) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if err := q.db.fault("GetUserByID"); err != nil {
		return nil, err
	}
	q.db.mu.RLock()
	defer q.db.mu.RUnlock()
	u, ok := q.db.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (q queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := q.db.fault("GetUserByUsername"); err != nil {
		return nil, err
	}
	q.db.mu.RLock()
	defer q.db.mu.RUnlock()
	for _, u := range q.db.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (q queries) ListUsers(ctx context.Context) ([]models.User, error) {
	if err := q.db.fault("ListUsers"); err != nil {
		return nil, err
	}
	q.db.mu.RLock()
	defer q.db.mu.RUnlock()
	users := make([]models.User, 0, len(q.db.users))
	for _, u := range q.db.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Username < users[j].Username
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (q queries) UpdateUser(ctx context.Context, u *models.User) error {
	if err := q.db.fault("UpdateUser"); err != nil {
		return err
	}
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	prev, ok := q.db.users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	for id, other := range q.db.users {
		if id == u.ID {
			continue
		}
		if other.Username == u.Username || other.Email == u.Email {
			return store.ErrConflict
		}
	}
	next := prev
	next.Username = u.Username
	next.Email = u.Email
	q.db.users[u.ID] = next
	q.record(func() { q.db.users[prev.ID] = prev })
	return nil
}

// ---- products ----

func (q queries) CreateProduct(ctx context.Context, p *models.Product) error {
	if err := q.db.fault("CreateProduct"); err != nil {
		return err
	}
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	if _, ok := q.db.products[p.ID]; ok {
		return store.ErrConflict
	}
	q.db.products[p.ID] = *p
	id := p.ID
	q.record(func() { delete(q.db.products, id) })
	return nil
}

func (q queries) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if err := q.db.fault("GetProduct"); err != nil {
		return nil, err
	}
	q.db.mu.RLock()
	defer q.db.mu.RUnlock()
	p, ok := q.db.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (q queries) ListProducts(ctx context.Context) ([]models.Product, error) {
	if err := q.db.fault("ListProducts"); err != nil {
		return nil, err
	}
	q.db.mu.RLock()
	defer q.db.mu.RUnlock()
	products := make([]models.Product, 0, len(q.db.products))
	for _, p := range q.db.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ID.String() < products[j].ID.String()
		}
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	return products, nil
}

func (q queries) UpdateProduct(ctx context.Context, p *models.Product) error {
	if err := q.db.fault("UpdateProduct"); err != nil {
		return err
	}
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	prev, ok := q.db.products[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	next := prev
	next.Name = p.Name
	next.Description = p.Description
	next.Price = p.Price
	next.UpdatedAt = p.UpdatedAt
	q.db.products[p.ID] = next
	q.record(func() { q.db.products[prev.ID] = prev })
	return nil
}

// DeleteProduct also drops the product from every cart, like the
// ON DELETE CASCADE on cart_items. Order items keep their snapshot.
func (q queries) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := q.db.fault("DeleteProduct"); err != nil {
		return err
	}
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	prev, ok := q.db.products[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(q.db.products, id)
	q.record(func() { q.db.products[id] = prev })

	for cartID, byProduct := range q.db.items {
		if it, ok := byProduct[id]; ok {
			delete(byProduct, id)
			cartID, it := cartID, it
			q.record(func() { q.db.itemsOf(cartID)[it.ProductID] = it })
		}
	}
	return nil
}

// ---- carts ----

func (q queries) GetCartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if err := q.db.fault("GetCartByUser"); err != nil {
		return nil, err
	}
	q.db.mu.RLock()
	defer q.db.mu.RUnlock()
	id, ok := q.db.cartByUser[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := q.db.carts[id]
	return &c, nil
}

func (q queries) EnsureCart(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Cart, error) {
	if err := q.db.fault("EnsureCart"); err != nil {
		return nil, err
	}
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	if id, ok := q.db.cartByUser[userID]; ok {
		c := q.db.carts[id]
		return &c, nil
	}
	c := models.Cart{ID: uuid.New(), UserID: userID, UpdatedAt: now}
	q.db.carts[c.ID] = c
	q.db.cartByUser[userID] = c.ID
	q.record(func() {
		delete(q.db.carts, c.ID)
		delete(q.db.cartByUser, userID)
	})
	return &c, nil
}

// LockCart blocks until the cart's mutex is free and keeps it until the
// enclosing transaction ends. db.mu is never held while waiting.
func (q queries) LockCart(ctx context.Context, cartID uuid.UUID) error {
	if err := q.db.fault("LockCart"); err != nil {
		return err
	}
	q.db.mu.RLock()
	_, ok := q.db.carts[cartID]
	q.db.mu.RUnlock()
	if !ok {
		return store.ErrNotFound
	}
	if q.tx == nil {
		return nil
	}
	if _, held := q.tx.held[cartID]; held {
		return nil
	}
	m := q.db.cartLock(cartID)
	m.Lock()
	// The cart may have been rolled back while we waited on its creator.
	q.db.mu.RLock()
	_, ok = q.db.carts[cartID]
	q.db.mu.RUnlock()
	if !ok {
		m.Unlock()
		return store.ErrSerialization
	}
	q.tx.held[cartID] = m
	return ctx.Err()
}

func (q queries) TouchCart(ctx context.Context, cartID uuid.UUID, now time.Time) error {
	if err := q.db.fault("TouchCart"); err != nil {
		return err
	}
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	prev, ok := q.db.carts[cartID]
	if !ok {
		return store.ErrNotFound
	}
	next := prev
	next.UpdatedAt = now
	q.db.carts[cartID] = next
	q.record(func() { q.db.carts[cartID] = prev })
	return nil
}

// ---- cart items ----

// itemsOf must be called with db.mu held for writing.
func (d *db) itemsOf(cartID uuid.UUID) map[uuid.UUID]models.CartItem {
	m, ok := d.items[cartID]
	if !ok {
		m = make(map[uuid.UUID]models.CartItem)
		d.items[cartID] = m
	}
	return m
}

// restoreItem puts back prev, or removes the row when there was none.
// A line whose product has since been deleted stays gone.
func (q queries) restoreItem(cartID, productID uuid.UUID, prev models.CartItem, existed bool) func() {
	return func() {
		if existed {
			if _, ok := q.db.products[productID]; ok {
				q.db.itemsOf(cartID)[productID] = prev
			}
			return
		}
		delete(q.db.itemsOf(cartID), productID)
	}
}

func (q queries) IncrementCartItem(ctx context.Context, cartID, productID uuid.UUID, qty int, now time.Time) (*models.CartItem, error) {
	if err := q.db.fault("IncrementCartItem"); err != nil {
		return nil, err
	}
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	if _, ok := q.db.carts[cartID]; !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := q.db.products[productID]; !ok {
		return nil, store.ErrNotFound
	}
	byProduct := q.db.itemsOf(cartID)
	prev, existed := byProduct[productID]
	next := prev
	if !existed {
		next = models.CartItem{ID: uuid.New(), CartID: cartID, ProductID: productID}
	}
	if int64(next.Quantity)+int64(qty) > store.MaxQuantity {
		return nil, store.ErrOutOfRange
	}
	next.Quantity += qty
	next.UpdatedAt = now
	byProduct[productID] = next
	q.record(q.restoreItem(cartID, productID, prev, existed))
	return &next, nil
}

func (q queries) SetCartItemQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int, now time.Time) (*models.CartItem, error) {
	if err := q.db.fault("SetCartItemQuantity"); err != nil {
		return nil, err
	}
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	byProduct := q.db.itemsOf(cartID)
	prev, ok := byProduct[productID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if int64(qty) > store.MaxQuantity {
		return nil, store.ErrOutOfRange
	}
	next := prev
	next.Quantity = qty
	next.UpdatedAt = now
	byProduct[productID] = next
	q.record(q.restoreItem(cartID, productID, prev, true))
	return &next, nil
}

func (q queries) DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) error {
	if err := q.db.fault("DeleteCartItem"); err != nil {
		return err
	}
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	byProduct := q.db.itemsOf(cartID)
	prev, ok := byProduct[productID]
	if !ok {
		return store.ErrNotFound
	}
	delete(byProduct, productID)
	q.record(q.restoreItem(cartID, productID, prev, true))
	return nil
}

func sortItems(items []models.CartItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].ID.String() < items[j].ID.String()
		}
		return items[i].UpdatedAt.Before(items[j].UpdatedAt)
	})
}

func (q queries) ListCartItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	if err := q.db.fault("ListCartItems"); err != nil {
		return nil, err
	}
	q.db.mu.RLock()
	defer q.db.mu.RUnlock()
	items := make([]models.CartItem, 0, len(q.db.items[cartID]))
	for _, it := range q.db.items[cartID] {
		items = append(items, it)
	}
	sortItems(items)
	return items, nil
}

func (q queries) ListCartLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error) {
	if err := q.db.fault("ListCartLines"); err != nil {
		return nil, err
	}
	q.db.mu.RLock()
	defer q.db.mu.RUnlock()
	items := make([]models.CartItem, 0, len(q.db.items[cartID]))
	for _, it := range q.db.items[cartID] {
		items = append(items, it)
	}
	sortItems(items)

	lines := make([]models.CartLine, 0, len(items))
	for _, it := range items {
		p, ok := q.db.products[it.ProductID]
		if !ok {
			continue
		}
		lines = append(lines, models.CartLine{
			ID:          it.ID,
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Subtotal:    p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}
	return lines, nil
}

func (q queries) ClearCartItems(ctx context.Context, cartID uuid.UUID) (int64, error) {
	if err := q.db.fault("ClearCartItems"); err != nil {
		return 0, err
	}
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	byProduct := q.db.items[cartID]
	n := int64(len(byProduct))
	for productID, prev := range byProduct {
		delete(byProduct, productID)
		q.record(q.restoreItem(cartID, productID, prev, true))
	}
	return n, nil
}

// ---- orders ----

func (q queries) CreateOrder(ctx context.Context, o *models.Order) error {
	if err := q.db.fault("CreateOrder"); err != nil {
		return err
	}
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	if _, ok := q.db.orders[o.ID]; ok {
		return store.ErrConflict
	}
	stored := *o
	stored.Items = nil
	q.db.orders[o.ID] = stored
	q.db.seq++
	q.db.orderSeq[o.ID] = q.db.seq
	id := o.ID
	q.record(func() {
		delete(q.db.orders, id)
		delete(q.db.orderSeq, id)
	})
	return nil
}

func (q queries) AddOrderItem(ctx context.Context, it *models.OrderItem) error {
	if err := q.db.fault("AddOrderItem"); err != nil {
		return err
	}
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	if _, ok := q.db.orders[it.OrderID]; !ok {
		return store.ErrNotFound
	}
	orderID := it.OrderID
	prev := q.db.orderItems[orderID]
	q.db.orderItems[orderID] = append(append([]models.OrderItem(nil), prev...), *it)
	q.record(func() {
		if prev == nil {
			delete(q.db.orderItems, orderID)
			return
		}
		q.db.orderItems[orderID] = prev
	})
	return nil
}

func (q queries) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if err := q.db.fault("ListOrdersByUser"); err != nil {
		return nil, err
	}
	q.db.mu.RLock()
	defer q.db.mu.RUnlock()
	orders := []models.Order{}
	for _, o := range q.db.orders {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return q.db.orderSeq[orders[i].ID] > q.db.orderSeq[orders[j].ID]
	})
	return orders, nil
}

func (q queries) GetOrderForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if err := q.db.fault("GetOrderForUser"); err != nil {
		return nil, err
	}
	q.db.mu.RLock()
	defer q.db.mu.RUnlock()
	o, ok := q.db.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, store.ErrNotFound
	}
	return &o, nil
}

func (q queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	if err := q.db.fault("ListOrderItems"); err != nil {
		return nil, err
	}
	q.db.mu.RLock()
	defer q.db.mu.RUnlock()
	return append([]models.OrderItem{}, q.db.orderItems[orderID]...), nil
}

func (q queries) DeleteOrderForUser(ctx context.Context, userID, orderID uuid.UUID) error {
	if err := q.db.fault("DeleteOrderForUser"); err != nil {
		return err
	}
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	o, ok := q.db.orders[orderID]
	if !ok || o.UserID != userID {
		return store.ErrNotFound
	}
	items, seq := q.db.orderItems[orderID], q.db.orderSeq[orderID]
	delete(q.db.orders, orderID)
	delete(q.db.orderItems, orderID)
	delete(q.db.orderSeq, orderID)
	q.record(func() {
		q.db.orders[orderID] = o
		q.db.orderSeq[orderID] = seq
		if items != nil {
			q.db.orderItems[orderID] = items
		}
	})
	return nil
}
