package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/staymarket/order/internal/dal/interfaces/iorderrepo"
	"github.com/staymarket/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/staymarket/order/internal/dal/interfaces/iproductrepo"
	"github.com/staymarket/order/internal/service/models/order"
	"github.com/staymarket/order/internal/service/models/outbox"
	"github.com/staymarket/order/internal/service/models/product"
)

// Store is the in-memory ledger implementation. It honors the same atomicity
// contract as the Postgres layer: a unit of work holds the store lock from
// Begin to Commit/Rollback, so validate-then-mutate sequences never interleave
// with concurrent units of work.
type Store struct {
	mu sync.Mutex

	orders   map[int64]order.Order
	products map[int64]product.Product
	outbox   map[int64]outbox.OutboxMessage

	nextOrderID  int64
	nextItemID   int64
	nextOutboxID int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		orders:   make(map[int64]order.Order),
		products: make(map[int64]product.Product),
		outbox:   make(map[int64]outbox.OutboxMessage),
	}
}

// SeedProduct inserts or replaces a catalog product.
func (s *Store) SeedProduct(p product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// Product returns a product by id for inspection.
func (s *Store) Product(id int64) (product.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

// NewUnitOfWork creates a unit of work over the store.
func (s *Store) NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{store: s}
}

// UnitOfWork implements transactional access to the store. Begin locks the
// store and snapshots its state; Rollback restores the snapshot. Without
// Begin, repositories lock per operation.
type UnitOfWork struct {
	store  *Store
	active bool

	ordersSnap   map[int64]order.Order
	productsSnap map[int64]product.Product
	outboxSnap   map[int64]outbox.OutboxMessage
	idsSnap      [3]int64
}

func (u *UnitOfWork) Begin(_ context.Context) error {
	u.store.mu.Lock()
	u.active = true

	u.ordersSnap = make(map[int64]order.Order, len(u.store.orders))
	for id, o := range u.store.orders {
		u.ordersSnap[id] = cloneOrder(o)
	}
	u.productsSnap = make(map[int64]product.Product, len(u.store.products))
	for id, p := range u.store.products {
		u.productsSnap[id] = p
	}
	u.outboxSnap = make(map[int64]outbox.OutboxMessage, len(u.store.outbox))
	for id, m := range u.store.outbox {
		u.outboxSnap[id] = m
	}
	u.idsSnap = [3]int64{u.store.nextOrderID, u.store.nextItemID, u.store.nextOutboxID}

	return nil
}

func (u *UnitOfWork) Commit() error {
	if !u.active {
		return nil
	}
	u.active = false
	u.ordersSnap, u.productsSnap, u.outboxSnap = nil, nil, nil
	u.store.mu.Unlock()

	return nil
}

func (u *UnitOfWork) Rollback() error {
	if !u.active {
		return nil
	}
	u.active = false

	u.store.orders = u.ordersSnap
	u.store.products = u.productsSnap
	u.store.outbox = u.outboxSnap
	u.store.nextOrderID = u.idsSnap[0]
	u.store.nextItemID = u.idsSnap[1]
	u.store.nextOutboxID = u.idsSnap[2]
	u.ordersSnap, u.productsSnap, u.outboxSnap = nil, nil, nil
	u.store.mu.Unlock()

	return nil
}

// do runs fn with the store locked, reusing the unit-of-work lock when active.
func (u *UnitOfWork) do(fn func() error) error {
	if u.active {
		return fn()
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	return fn()
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return &OrderRepository{uow: u}
}

func (u *UnitOfWork) ProductRepository() iproductrepo.IProductRepository {
	return &ProductRepository{uow: u}
}

func (u *UnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return &OutboxRepository{uow: u}
}

func cloneOrder(o order.Order) order.Order {
	items := make([]order.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items

	return o
}

// OrderRepository is the in-memory order repository.
type OrderRepository struct {
	uow *UnitOfWork
}

func (r *OrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	err := r.uow.do(func() error {
		s := r.uow.store
		s.nextOrderID++
		o.ID = s.nextOrderID
		for i := range o.Items {
			s.nextItemID++
			o.Items[i].ID = s.nextItemID
			o.Items[i].OrderID = o.ID
		}
		s.orders[o.ID] = cloneOrder(o)

		return nil
	})

	return o, err
}

func (r *OrderRepository) Update(ctx context.Context, o order.Order) (order.Order, error) {
	err := r.uow.do(func() error {
		s := r.uow.store
		stored, ok := s.orders[o.ID]
		if !ok {
			return order.ErrOrderNotFound
		}
		o.Items = stored.Items
		s.orders[o.ID] = cloneOrder(o)

		return nil
	})

	return o, err
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	var result order.Order
	err := r.uow.do(func() error {
		o, ok := r.uow.store.orders[id]
		if !ok {
			return order.ErrOrderNotFound
		}
		result = cloneOrder(o)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *OrderRepository) Query(
	ctx context.Context,
	filter *order.QueryOrdersModel,
) ([]order.Order, error) {
	result := []order.Order{}
	err := r.uow.do(func() error {
		for _, o := range r.uow.store.orders {
			if matches(o, filter) {
				result = append(result, cloneOrder(o))
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []order.Order{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

func matches(o order.Order, filter *order.QueryOrdersModel) bool {
	if len(filter.Ids) > 0 && !containsID(filter.Ids, o.ID) {
		return false
	}
	if len(filter.HotelIds) > 0 && !containsID(filter.HotelIds, o.HotelID) {
		return false
	}
	if len(filter.MerchantIds) > 0 && !containsID(filter.MerchantIds, o.MerchantID) {
		return false
	}
	if len(filter.ClientIds) > 0 {
		if o.ClientID == nil || !containsID(filter.ClientIds, *o.ClientID) {
			return false
		}
	}

	return true
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}

	return false
}

// ProductRepository is the in-memory stock-accounting repository.
type ProductRepository struct {
	uow *UnitOfWork
}

func (r *ProductRepository) GetForUpdate(
	ctx context.Context,
	ids []int64,
) ([]product.Product, error) {
	result := make([]product.Product, 0, len(ids))
	err := r.uow.do(func() error {
		for _, id := range ids {
			p, ok := r.uow.store.products[id]
			if !ok {
				return fmt.Errorf("%w: %d", product.ErrProductNotFound, id)
			}
			result = append(result, p)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *ProductRepository) DecrementStock(ctx context.Context, productID int64, qty int) error {
	return r.uow.do(func() error {
		p, ok := r.uow.store.products[productID]
		if !ok {
			return fmt.Errorf("%w: %d", product.ErrProductNotFound, productID)
		}
		if p.Stock < qty {
			return &product.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Available:   p.Stock,
				Requested:   qty,
			}
		}
		p.Stock -= qty
		r.uow.store.products[productID] = p

		return nil
	})
}

// OutboxRepository is the in-memory outbox repository.
type OutboxRepository struct {
	uow *UnitOfWork
}

func (r *OutboxRepository) Insert(ctx context.Context, msg outbox.OutboxMessage) error {
	return r.uow.do(func() error {
		s := r.uow.store
		s.nextOutboxID++
		msg.ID = s.nextOutboxID
		s.outbox[msg.ID] = msg

		return nil
	})
}

func (r *OutboxRepository) GetPendingMessages(
	ctx context.Context,
	limit int,
) ([]outbox.OutboxMessage, error) {
	var result []outbox.OutboxMessage
	err := r.uow.do(func() error {
		now := time.Now()
		for _, msg := range r.uow.store.outbox {
			if msg.RetryCount < msg.MaxRetries && !msg.NextRetryAt.After(now) {
				result = append(result, msg)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].NextRetryAt.Before(result[j].NextRetryAt)
	})
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}

	return result, nil
}

func (r *OutboxRepository) Delete(ctx context.Context, id int64) error {
	return r.uow.do(func() error {
		delete(r.uow.store.outbox, id)

		return nil
	})
}

func (r *OutboxRepository) UpdateRetry(
	ctx context.Context,
	id int64,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	return r.uow.do(func() error {
		msg, ok := r.uow.store.outbox[id]
		if !ok {
			return nil
		}
		msg.RetryCount = retryCount
		msg.LastError = lastError
		msg.NextRetryAt = nextRetryAt
		msg.UpdatedAt = time.Now()
		r.uow.store.outbox[id] = msg

		return nil
	})
}
