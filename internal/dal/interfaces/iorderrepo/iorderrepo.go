package iorderrepo

import (
	"context"

	"github.com/staymarket/order/internal/service/models/order"
)

// IOrderRepository defines order persistence operations.
type IOrderRepository interface {
	// Insert persists a new order with its items and returns it with
	// assigned identifiers.
	Insert(ctx context.Context, o order.Order) (order.Order, error)

	// Update persists mutable order fields (status, timestamps, metadata).
	// Items are immutable after creation and are not touched.
	Update(ctx context.Context, o order.Order) (order.Order, error)

	// GetByID returns the order or order.ErrOrderNotFound.
	GetByID(ctx context.Context, id int64) (*order.Order, error)

	// Query retrieves orders with their items based on filter criteria.
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
}
