package ordersvc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/staymarket/order/internal/dal/interfaces/iorderrepo"
	"github.com/staymarket/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/staymarket/order/internal/dal/interfaces/iproductrepo"
	"github.com/staymarket/order/internal/dal/postgres"
	"github.com/staymarket/order/internal/dal/repositories/memstore"
	"github.com/staymarket/order/internal/dal/uow"
	"github.com/staymarket/order/internal/service/models/commission"
	"github.com/staymarket/order/internal/service/models/notification"
	"github.com/staymarket/order/internal/service/models/order"
	"github.com/staymarket/order/internal/service/models/outbox"
	"github.com/staymarket/order/internal/service/services/stockguard"
)

var ErrNoItems = errors.New("order must contain at least one item")

// OrderService coordinates order creation, status transitions and pickup
// confirmation against the ledger, and fans resulting events out to the hub.
type OrderService struct {
	pgClient *postgres.Client
	memStore *memstore.Store
	guard    *stockguard.Guard
	hub      notifier

	queueName string

	lockMu     sync.Mutex
	orderLocks map[int64]*orderLock
}

// orderLock is a refcounted per-order mutex. The last releaser removes the
// entry, so the lock map only holds orders with an operation in flight.
type orderLock struct {
	mu   sync.Mutex
	refs int
}

func (s *OrderService) newUOW() unitOfWork {
	if s.pgClient != nil {
		return uow.NewUnitOfWork(s.pgClient)
	}
	return s.memStore.NewUnitOfWork()
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	OrderRepository() iorderrepo.IOrderRepository
	ProductRepository() iproductrepo.IProductRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

type notifier interface {
	OrderCreated(o order.Order)
	StatusChanged(o order.Order)
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	queueName := viper.GetString("rabbitmq.queue")
	if queueName == "" {
		queueName = "order.events"
	}

	s := &OrderService{
		guard:      stockguard.NewGuard(),
		queueName:  queueName,
		orderLocks: make(map[int64]*orderLock),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.pgClient == nil && s.memStore == nil {
		panic("order service requires a storage backend")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
	}
}

// WithMemoryStore backs the OrderService with the in-memory ledger.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithMemoryStore(store *memstore.Store) option {
	return func(s *OrderService) {
		s.memStore = store
	}
}

// WithNotifier sets the notification fanout for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNotifier(hub notifier) option {
	return func(s *OrderService) {
		s.hub = hub
	}
}

// lockOrder serializes operations per order id.
func (s *OrderService) lockOrder(id int64) func() {
	s.lockMu.Lock()
	l, ok := s.orderLocks[id]
	if !ok {
		l = &orderLock{}
		s.orderLocks[id] = l
	}
	l.refs++
	s.lockMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.lockMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.orderLocks, id)
		}
		s.lockMu.Unlock()
	}
}

// CreateOrderItemModel is one requested line of a new order.
type CreateOrderItemModel struct {
	ProductID int64
	Quantity  int
}

// CreateOrderModel carries the input of CreateOrder.
type CreateOrderModel struct {
	HotelID           int64
	MerchantID        int64
	ClientID          *int64
	CustomerName      string
	CustomerRoom      string
	DeliveryNotes     string
	EstimatedDelivery *time.Time
	Items             []CreateOrderItemModel
}

// CreateOrder reserves stock, computes the commission split over snapshot
// prices and persists the order with its staged outbox event in one
// transaction. The order always starts pending. On any failure nothing is
// committed: no stock decrement survives without its order.
func (s *OrderService) CreateOrder(ctx context.Context, model CreateOrderModel) (order.Order, error) {
	if len(model.Items) == 0 {
		return order.Order{}, ErrNoItems
	}

	now := time.Now()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, err
	}
	defer work.Rollback() //nolint:errcheck

	lines := make([]stockguard.Line, len(model.Items))
	for i, item := range model.Items {
		lines[i] = stockguard.Line{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	products, err := s.guard.Reserve(ctx, work.ProductRepository(), lines)
	if err != nil {
		return order.Order{}, err
	}

	items := make([]order.OrderItem, len(model.Items))
	for i, item := range model.Items {
		p := products[item.ProductID]
		items[i] = order.OrderItem{
			ProductID:   item.ProductID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			UnitPrice:   p.Price,
		}
	}

	o := order.Order{
		Number:            order.NewNumber(now),
		HotelID:           model.HotelID,
		MerchantID:        model.MerchantID,
		ClientID:          model.ClientID,
		CustomerName:      model.CustomerName,
		CustomerRoom:      model.CustomerRoom,
		Items:             items,
		Status:            order.StatusPending,
		DeliveryNotes:     model.DeliveryNotes,
		EstimatedDelivery: model.EstimatedDelivery,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	o.SetTotalAmount()

	split := commission.Calculate(o.TotalAmount)
	o.MerchantCommission = split.Merchant
	o.PlatformCommission = split.Platform
	o.HotelCommission = split.Hotel

	o, err = work.OrderRepository().Insert(ctx, o)
	if err != nil {
		return order.Order{}, err
	}

	if err := s.stageEvent(ctx, work, notification.NewOrderCreated(o, now), now); err != nil {
		return order.Order{}, err
	}

	if err := work.Commit(); err != nil {
		return order.Order{}, err
	}

	s.notifyCreated(o)

	return o, nil
}

// UpdateStatusModel carries the input of UpdateStatus. Nil metadata fields
// leave the stored values untouched.
type UpdateStatusModel struct {
	Status            order.Status
	DeliveryNotes     *string
	EstimatedDelivery *time.Time
}

// UpdateStatus applies a status transition per the transition table.
// Re-applying the current status persists metadata updates without emitting a
// status-changed event. Calls for the same order are serialized, so two
// concurrent updates can never both transition from the same stale status.
func (s *OrderService) UpdateStatus(
	ctx context.Context,
	orderID int64,
	model UpdateStatusModel,
) (order.Order, error) {
	unlock := s.lockOrder(orderID)
	defer unlock()

	now := time.Now()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, err
	}
	defer work.Rollback() //nolint:errcheck

	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}

	previous := o.Status
	if err := o.Transition(model.Status, now); err != nil {
		return order.Order{}, err
	}

	if model.DeliveryNotes != nil {
		o.DeliveryNotes = *model.DeliveryNotes
	}
	if model.EstimatedDelivery != nil {
		o.EstimatedDelivery = model.EstimatedDelivery
	}

	if _, err := work.OrderRepository().Update(ctx, *o); err != nil {
		return order.Order{}, err
	}

	changed := o.Status != previous
	if changed {
		if err := s.stageEvent(ctx, work, notification.NewStatusChanged(*o, now), now); err != nil {
			return order.Order{}, err
		}
	}

	if err := work.Commit(); err != nil {
		return order.Order{}, err
	}

	if changed {
		s.notifyStatusChanged(*o)
	}

	return *o, nil
}

// ConfirmPickup records the hotel-reception handoff to the guest. Only valid
// once the order is delivered; idempotent when already picked up.
func (s *OrderService) ConfirmPickup(ctx context.Context, orderID int64) (order.Order, error) {
	unlock := s.lockOrder(orderID)
	defer unlock()

	now := time.Now()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, err
	}
	defer work.Rollback() //nolint:errcheck

	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}

	if err := o.ConfirmPickup(now); err != nil {
		return order.Order{}, err
	}

	if _, err := work.OrderRepository().Update(ctx, *o); err != nil {
		return order.Order{}, err
	}

	if err := work.Commit(); err != nil {
		return order.Order{}, err
	}

	return *o, nil
}

// GetOrder retrieves one order by id.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*order.Order, error) {
	return s.newUOW().OrderRepository().GetByID(ctx, orderID)
}

// GetOrders retrieves orders based on filter.
func (s *OrderService) GetOrders(
	ctx context.Context,
	filter *order.QueryOrdersModel,
) ([]order.Order, error) {
	return s.newUOW().OrderRepository().Query(ctx, filter)
}

// ListOrdersByHotel retrieves the orders placed through one hotel.
func (s *OrderService) ListOrdersByHotel(ctx context.Context, hotelID int64) ([]order.Order, error) {
	return s.GetOrders(ctx, &order.QueryOrdersModel{HotelIds: []int64{hotelID}})
}

// ListOrdersByMerchant retrieves the orders routed to one merchant.
func (s *OrderService) ListOrdersByMerchant(ctx context.Context, merchantID int64) ([]order.Order, error) {
	return s.GetOrders(ctx, &order.QueryOrdersModel{MerchantIds: []int64{merchantID}})
}

// ListOrdersByClient retrieves the orders of one customer.
func (s *OrderService) ListOrdersByClient(ctx context.Context, clientID int64) ([]order.Order, error) {
	return s.GetOrders(ctx, &order.QueryOrdersModel{ClientIds: []int64{clientID}})
}

// stageEvent inserts the outbox mirror of a notification into the current
// transaction.
func (s *OrderService) stageEvent(
	ctx context.Context,
	work unitOfWork,
	n notification.Notification,
	now time.Time,
) error {
	msg, err := outbox.NewOrderEvent(n, s.queueName, now)
	if err != nil {
		return err
	}

	return work.OutboxRepository().Insert(ctx, msg)
}

// Hub delivery is a side effect: it never fails the order operation.
func (s *OrderService) notifyCreated(o order.Order) {
	if s.hub != nil {
		s.hub.OrderCreated(o)
	}
}

func (s *OrderService) notifyStatusChanged(o order.Order) {
	if s.hub != nil {
		s.hub.StatusChanged(o)
	}
}
