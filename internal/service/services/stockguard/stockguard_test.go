package stockguard

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staymarket/order/internal/dal/repositories/memstore"
	"github.com/staymarket/order/internal/service/models/product"
)

func newStoreWithProducts(t *testing.T) *memstore.Store {
	t.Helper()
	store := memstore.New()
	store.SeedProduct(product.Product{
		ID: 7, MerchantID: 1, Name: "club sandwich",
		Price: decimal.RequireFromString("12.50"), Stock: 5,
	})
	store.SeedProduct(product.Product{
		ID: 9, MerchantID: 1, Name: "lemonade",
		Price: decimal.RequireFromString("3.40"), Stock: 1,
	})
	return store
}

func TestReserveDecrementsStock(t *testing.T) {
	store := newStoreWithProducts(t)
	guard := NewGuard()

	products, err := guard.Reserve(
		context.Background(),
		store.NewUnitOfWork().ProductRepository(),
		[]Line{{ProductID: 7, Quantity: 2}},
	)
	require.NoError(t, err)
	assert.Equal(t, "club sandwich", products[7].Name)

	p, ok := store.Product(7)
	require.True(t, ok)
	assert.Equal(t, 3, p.Stock)
}

func TestReserveInsufficientStock(t *testing.T) {
	store := newStoreWithProducts(t)
	guard := NewGuard()

	_, err := guard.Reserve(
		context.Background(),
		store.NewUnitOfWork().ProductRepository(),
		[]Line{{ProductID: 9, Quantity: 3}},
	)

	var stockErr *product.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(9), stockErr.ProductID)
	assert.Equal(t, "lemonade", stockErr.ProductName)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)

	p, _ := store.Product(9)
	assert.Equal(t, 1, p.Stock, "failed reservation must not touch stock")
}

func TestReserveAllOrNothing(t *testing.T) {
	store := newStoreWithProducts(t)
	guard := NewGuard()

	_, err := guard.Reserve(
		context.Background(),
		store.NewUnitOfWork().ProductRepository(),
		[]Line{
			{ProductID: 7, Quantity: 2}, // fits
			{ProductID: 9, Quantity: 3}, // exceeds stock
		},
	)
	require.Error(t, err)

	p7, _ := store.Product(7)
	p9, _ := store.Product(9)
	assert.Equal(t, 5, p7.Stock, "no partial decrement on batch failure")
	assert.Equal(t, 1, p9.Stock)
}

func TestReserveUnknownProduct(t *testing.T) {
	store := newStoreWithProducts(t)
	guard := NewGuard()

	_, err := guard.Reserve(
		context.Background(),
		store.NewUnitOfWork().ProductRepository(),
		[]Line{{ProductID: 404, Quantity: 1}},
	)

	require.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestReserveMergesDuplicateLines(t *testing.T) {
	store := newStoreWithProducts(t)
	guard := NewGuard()

	// 3 + 3 of product 7 exceeds its stock of 5 even though each line fits.
	_, err := guard.Reserve(
		context.Background(),
		store.NewUnitOfWork().ProductRepository(),
		[]Line{
			{ProductID: 7, Quantity: 3},
			{ProductID: 7, Quantity: 3},
		},
	)

	var stockErr *product.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Requested)

	p, _ := store.Product(7)
	assert.Equal(t, 5, p.Stock)
}

func TestReserveConcurrentNeverOversells(t *testing.T) {
	store := memstore.New()
	store.SeedProduct(product.Product{
		ID: 1, MerchantID: 1, Name: "espresso",
		Price: decimal.RequireFromString("2.00"), Stock: 10,
	})
	guard := NewGuard()

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := guard.Reserve(
				context.Background(),
				store.NewUnitOfWork().ProductRepository(),
				[]Line{{ProductID: 1, Quantity: 1}},
			)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded, "successful decrements must not exceed initial stock")

	p, _ := store.Product(1)
	assert.Equal(t, 0, p.Stock)
	assert.GreaterOrEqual(t, p.Stock, 0, "stock must never go negative")
}
