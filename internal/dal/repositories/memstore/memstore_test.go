package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staymarket/order/internal/service/models/notification"
	"github.com/staymarket/order/internal/service/models/order"
	"github.com/staymarket/order/internal/service/models/outbox"
	"github.com/staymarket/order/internal/service/models/product"
)

func notificationFixture() notification.Notification {
	return notification.Notification{
		Type:        notification.TypeOrderCreated,
		OrderID:     1,
		OrderNumber: "ORD-20260901-ABCDEF",
		Status:      order.StatusPending,
		HotelID:     4,
		MerchantID:  2,
		Message:     "new order ORD-20260901-ABCDEF from room 312",
		Timestamp:   time.Now(),
	}
}

func seededStore() *Store {
	s := New()
	s.SeedProduct(product.Product{
		ID: 1, MerchantID: 2, Name: "espresso",
		Price: decimal.RequireFromString("2.50"), Stock: 10,
	})

	return s
}

func testOrder(hotelID int64, createdAt time.Time) order.Order {
	return order.Order{
		Number:       order.NewNumber(createdAt),
		HotelID:      hotelID,
		MerchantID:   2,
		CustomerName: "Ana Torres",
		CustomerRoom: "312",
		Items: []order.OrderItem{
			{ProductID: 1, ProductName: "espresso", Quantity: 1, UnitPrice: decimal.RequireFromString("2.50")},
		},
		Status:    order.StatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestRollbackRestoresState(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	work := store.NewUnitOfWork()
	require.NoError(t, work.Begin(ctx))

	require.NoError(t, work.ProductRepository().DecrementStock(ctx, 1, 4))
	inserted, err := work.OrderRepository().Insert(ctx, testOrder(4, time.Now()))
	require.NoError(t, err)
	require.NotZero(t, inserted.ID)

	msg, err := outbox.NewOrderEvent(notificationFixture(), "order.events", time.Now())
	require.NoError(t, err)
	require.NoError(t, work.OutboxRepository().Insert(ctx, msg))

	require.NoError(t, work.Rollback())

	p, ok := store.Product(1)
	require.True(t, ok)
	assert.Equal(t, 10, p.Stock)

	_, err = store.NewUnitOfWork().OrderRepository().GetByID(ctx, inserted.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	pending, err := store.NewUnitOfWork().OutboxRepository().GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// IDs rewind with the snapshot, so the next insert reuses the sequence.
	work = store.NewUnitOfWork()
	require.NoError(t, work.Begin(ctx))
	again, err := work.OrderRepository().Insert(ctx, testOrder(4, time.Now()))
	require.NoError(t, err)
	require.NoError(t, work.Commit())
	assert.Equal(t, inserted.ID, again.ID)
}

func TestCommitKeepsState(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	work := store.NewUnitOfWork()
	require.NoError(t, work.Begin(ctx))
	require.NoError(t, work.ProductRepository().DecrementStock(ctx, 1, 3))
	inserted, err := work.OrderRepository().Insert(ctx, testOrder(4, time.Now()))
	require.NoError(t, err)
	require.NoError(t, work.Commit())

	p, _ := store.Product(1)
	assert.Equal(t, 7, p.Stock)

	got, err := store.NewUnitOfWork().OrderRepository().GetByID(ctx, inserted.ID)
	require.NoError(t, err)
	assert.Equal(t, inserted.Number, got.Number)
	require.Len(t, got.Items, 1)
	assert.NotZero(t, got.Items[0].ID)
}

func TestGetByIDReturnsCopy(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	work := store.NewUnitOfWork()
	require.NoError(t, work.Begin(ctx))
	inserted, err := work.OrderRepository().Insert(ctx, testOrder(4, time.Now()))
	require.NoError(t, err)
	require.NoError(t, work.Commit())

	got, err := store.NewUnitOfWork().OrderRepository().GetByID(ctx, inserted.ID)
	require.NoError(t, err)
	got.Items[0].Quantity = 99

	fresh, err := store.NewUnitOfWork().OrderRepository().GetByID(ctx, inserted.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Items[0].Quantity, "mutating a read result must not leak into the store")
}

func TestQueryFiltersSortsAndPaginates(t *testing.T) {
	store := seededStore()
	ctx := context.Background()
	base := time.Now()

	work := store.NewUnitOfWork()
	require.NoError(t, work.Begin(ctx))
	repo := work.OrderRepository()

	var ids []int64
	for i := 0; i < 3; i++ {
		o := testOrder(4, base.Add(time.Duration(i)*time.Minute))
		inserted, err := repo.Insert(ctx, o)
		require.NoError(t, err)
		ids = append(ids, inserted.ID)
	}
	otherHotel := testOrder(5, base.Add(time.Hour))
	clientID := int64(12)
	otherHotel.ClientID = &clientID
	_, err := repo.Insert(ctx, otherHotel)
	require.NoError(t, err)
	require.NoError(t, work.Commit())

	repo = store.NewUnitOfWork().OrderRepository()

	byHotel, err := repo.Query(ctx, &order.QueryOrdersModel{HotelIds: []int64{4}})
	require.NoError(t, err)
	require.Len(t, byHotel, 3)
	// Newest first.
	assert.Equal(t, ids[2], byHotel[0].ID)
	assert.Equal(t, ids[0], byHotel[2].ID)

	byClient, err := repo.Query(ctx, &order.QueryOrdersModel{ClientIds: []int64{12}})
	require.NoError(t, err)
	require.Len(t, byClient, 1)
	assert.Equal(t, int64(5), byClient[0].HotelID)

	page, err := repo.Query(ctx, &order.QueryOrdersModel{HotelIds: []int64{4}, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)

	empty, err := repo.Query(ctx, &order.QueryOrdersModel{HotelIds: []int64{4}, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdateUnknownOrder(t *testing.T) {
	store := seededStore()

	repo := store.NewUnitOfWork().OrderRepository()
	_, err := repo.Update(context.Background(), testOrder(4, time.Now()))
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestOutboxRetryBookkeeping(t *testing.T) {
	store := seededStore()
	ctx := context.Background()
	repo := store.NewUnitOfWork().OutboxRepository()

	msg, err := outbox.NewOrderEvent(notificationFixture(), "order.events", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, msg))

	pending, err := repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Pushing the retry into the future hides the message until due.
	err = repo.UpdateRetry(ctx, pending[0].ID, 1, "connection refused", time.Now().Add(time.Hour))
	require.NoError(t, err)

	pending, err = repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, repo.Delete(ctx, 1))
}
