package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/staymarket/order/internal/dal/postgres"
	"github.com/staymarket/order/internal/service/models/product"
)

// ProductRepository implements stock accounting for PostgreSQL.
type ProductRepository struct {
	conn postgres.Querier
}

// NewProductRepository creates a new product repository.
func NewProductRepository(conn postgres.Querier) *ProductRepository {
	return &ProductRepository{
		conn: conn,
	}
}

// GetForUpdate loads products by id with FOR UPDATE row locks, serializing
// concurrent reservations for the same products until the transaction ends.
func (r *ProductRepository) GetForUpdate(
	ctx context.Context,
	ids []int64,
) ([]product.Product, error) {
	query, args, err := sq.Select("id", "merchant_id", "name", "price", "stock").
		From("products").
		Where(sq.Eq{"id": ids}).
		OrderBy("id ASC").
		Suffix("FOR UPDATE").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build products select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	found := make(map[int64]product.Product, len(ids))
	for rows.Next() {
		var p product.Product
		var price string
		if err := rows.Scan(&p.ID, &p.MerchantID, &p.Name, &price, &p.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("failed to parse product price: %w", err)
		}
		found[p.ID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	result := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		p, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", product.ErrProductNotFound, id)
		}
		result = append(result, p)
	}

	return result, nil
}

// DecrementStock reduces a product's stock by qty.
func (r *ProductRepository) DecrementStock(ctx context.Context, productID int64, qty int) error {
	query, args, err := sq.Update("products").
		Set("stock", sq.Expr("stock - ?", qty)).
		Where(sq.Eq{"id": productID}).
		Where(sq.GtOrEq{"stock": qty}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build stock update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", product.ErrProductNotFound, productID)
	}

	return nil
}
