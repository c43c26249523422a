package iproductrepo

import (
	"context"

	"github.com/staymarket/order/internal/service/models/product"
)

// IProductRepository defines the stock-accounting view of the catalog.
type IProductRepository interface {
	// GetForUpdate loads products by id, locking them against concurrent
	// reservations for the duration of the enclosing unit of work. A missing
	// id yields product.ErrProductNotFound.
	GetForUpdate(ctx context.Context, ids []int64) ([]product.Product, error)

	// DecrementStock reduces a product's stock by qty. Callers must have
	// validated availability first; stock never goes negative.
	DecrementStock(ctx context.Context, productID int64, qty int) error
}
