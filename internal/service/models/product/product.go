package product

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// Product is the stock-relevant view of a catalog item owned by a merchant.
// Catalog management lives outside this service; here products are only read
// and their stock decremented during order creation.
type Product struct {
	ID         int64           `json:"id"`
	MerchantID int64           `json:"merchantId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
}

// InsufficientStockError reports a line item that asked for more units than
// the product currently has.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf(
		"insufficient stock for product %d (%s): available %d, requested %d",
		e.ProductID, e.ProductName, e.Available, e.Requested,
	)
}
