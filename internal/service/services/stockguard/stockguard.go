package stockguard

import (
	"context"
	"sync"

	"github.com/staymarket/order/internal/dal/interfaces/iproductrepo"
	"github.com/staymarket/order/internal/service/models/product"
)

// Line is one requested reservation entry.
type Line struct {
	ProductID int64
	Quantity  int
}

// Guard validates requested quantities against current stock and decrements
// it as one atomic unit. The batch-level guard lock serializes
// validate-then-decrement across concurrent reservations regardless of the
// storage backend; the Postgres repository adds row locks on top.
type Guard struct {
	mu sync.Mutex
}

// NewGuard creates a stock guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Reserve checks every line against current stock and, only if all lines fit,
// decrements each product by the requested quantity. On any failure nothing
// is decremented. Returns the products read during validation so callers can
// snapshot names and prices.
//
// Decremented stock is never restored here; cancellation restock is a policy
// of the catalog side, not of order creation.
func (g *Guard) Reserve(
	ctx context.Context,
	repo iproductrepo.IProductRepository,
	lines []Line,
) (map[int64]product.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Merge duplicate product lines so validation sees the true demand.
	needed := make(map[int64]int, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if _, seen := needed[line.ProductID]; !seen {
			ids = append(ids, line.ProductID)
		}
		needed[line.ProductID] += line.Quantity
	}

	products, err := repo.GetForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, id := range ids {
		p := byID[id]
		if p.Stock < needed[id] {
			return nil, &product.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Available:   p.Stock,
				Requested:   needed[id],
			}
		}
	}

	for _, id := range ids {
		if err := repo.DecrementStock(ctx, id, needed[id]); err != nil {
			return nil, err
		}
	}

	return byID, nil
}
