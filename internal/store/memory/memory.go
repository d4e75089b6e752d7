// Package memory is an in-process store.Store. It keeps the contract of the
// Postgres store: per-cart exclusive locks held until the transaction ends
// and rollback of every write made inside a failed transaction.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"shop_back_end/internal/models"
	"shop_back_end/internal/store"
)

type db struct {
	mu sync.RWMutex

	users      map[uuid.UUID]models.User
	products   map[uuid.UUID]models.Product
	carts      map[uuid.UUID]models.Cart
	cartByUser map[uuid.UUID]uuid.UUID
	items      map[uuid.UUID]map[uuid.UUID]models.CartItem // cart id -> product id
	orders     map[uuid.UUID]models.Order
	orderItems map[uuid.UUID][]models.OrderItem
	orderSeq   map[uuid.UUID]int64
	seq        int64

	lockMu    sync.Mutex
	cartLocks map[uuid.UUID]*sync.Mutex

	faultMu sync.Mutex
	faults  map[string][]error
}

type Store struct {
	queries
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{queries: queries{db: &db{
		users:      make(map[uuid.UUID]models.User),
		products:   make(map[uuid.UUID]models.Product),
		carts:      make(map[uuid.UUID]models.Cart),
		cartByUser: make(map[uuid.UUID]uuid.UUID),
		items:      make(map[uuid.UUID]map[uuid.UUID]models.CartItem),
		orders:     make(map[uuid.UUID]models.Order),
		orderItems: make(map[uuid.UUID][]models.OrderItem),
		orderSeq:   make(map[uuid.UUID]int64),
		cartLocks:  make(map[uuid.UUID]*sync.Mutex),
		faults:     make(map[string][]error),
	}}}
}

// InjectFault makes the next call of the named Queries method (for example
// "AddOrderItem") fail with err. Calls queue up: injecting twice fails the
// next two calls.
func (s *Store) InjectFault(method string, err error) {
	s.db.faultMu.Lock()
	defer s.db.faultMu.Unlock()
	s.db.faults[method] = append(s.db.faults[method], err)
}

func (d *db) fault(method string) error {
	d.faultMu.Lock()
	defer d.faultMu.Unlock()
	queued := d.faults[method]
	if len(queued) == 0 {
		return nil
	}
	d.faults[method] = queued[1:]
	return queued[0]
}

func (d *db) cartLock(cartID uuid.UUID) *sync.Mutex {
	d.lockMu.Lock()
	defer d.lockMu.Unlock()
	m, ok := d.cartLocks[cartID]
	if !ok {
		m = &sync.Mutex{}
		d.cartLocks[cartID] = m
	}
	return m
}

type txState struct {
	undo []func()
	held map[uuid.UUID]*sync.Mutex
}

func (s *Store) WithinTx(ctx context.Context, fn func(q store.Queries) error) error {
	tx := &txState{held: make(map[uuid.UUID]*sync.Mutex)}
	defer func() {
		for _, m := range tx.held {
			m.Unlock()
		}
	}()

	err := fn(queries{db: s.db, tx: tx})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.db.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.db.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() {}
