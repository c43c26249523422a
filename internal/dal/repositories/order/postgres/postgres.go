package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/staymarket/order/internal/dal/postgres"
	"github.com/staymarket/order/internal/service/models/order"
)

var orderColumns = []string{
	"id",
	"number",
	"hotel_id",
	"merchant_id",
	"client_id",
	"customer_name",
	"customer_room",
	"total_amount",
	"merchant_commission",
	"platform_commission",
	"hotel_commission",
	"status",
	"delivery_notes",
	"estimated_delivery",
	"created_at",
	"updated_at",
	"confirmed_at",
	"delivered_at",
	"picked_up",
	"picked_up_at",
}

// OrderDal represents the order data access layer model.
type OrderDal struct {
	Id                 int64
	Number             string
	HotelId            int64
	MerchantId         int64
	ClientId           *int64
	CustomerName       string
	CustomerRoom       string
	TotalAmount        string
	MerchantCommission string
	PlatformCommission string
	HotelCommission    string
	Status             string
	DeliveryNotes      string
	EstimatedDelivery  *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ConfirmedAt        *time.Time
	DeliveredAt        *time.Time
	PickedUp           bool
	PickedUpAt         *time.Time
}

// ToModel converts OrderDal to the service layer Order model.
func (d *OrderDal) ToModel() (*order.Order, error) {
	status, err := order.ParseStatus(d.Status)
	if err != nil {
		return nil, err
	}

	total, err := decimal.NewFromString(d.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total amount: %w", err)
	}
	merchant, err := decimal.NewFromString(d.MerchantCommission)
	if err != nil {
		return nil, fmt.Errorf("failed to parse merchant commission: %w", err)
	}
	platform, err := decimal.NewFromString(d.PlatformCommission)
	if err != nil {
		return nil, fmt.Errorf("failed to parse platform commission: %w", err)
	}
	hotel, err := decimal.NewFromString(d.HotelCommission)
	if err != nil {
		return nil, fmt.Errorf("failed to parse hotel commission: %w", err)
	}

	return &order.Order{
		ID:                 d.Id,
		Number:             d.Number,
		HotelID:            d.HotelId,
		MerchantID:         d.MerchantId,
		ClientID:           d.ClientId,
		CustomerName:       d.CustomerName,
		CustomerRoom:       d.CustomerRoom,
		TotalAmount:        total,
		MerchantCommission: merchant,
		PlatformCommission: platform,
		HotelCommission:    hotel,
		Status:             status,
		DeliveryNotes:      d.DeliveryNotes,
		EstimatedDelivery:  d.EstimatedDelivery,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		ConfirmedAt:        d.ConfirmedAt,
		DeliveredAt:        d.DeliveredAt,
		PickedUp:           d.PickedUp,
		PickedUpAt:         d.PickedUpAt,
		Items:              []order.OrderItem{},
	}, nil
}

type itemDal struct {
	Id          int64
	OrderId     int64
	ProductId   int64
	ProductName string
	Quantity    int
	UnitPrice   string
}

func (d *itemDal) toModel() (*order.OrderItem, error) {
	price, err := decimal.NewFromString(d.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse unit price: %w", err)
	}

	return &order.OrderItem{
		ID:          d.Id,
		OrderID:     d.OrderId,
		ProductID:   d.ProductId,
		ProductName: d.ProductName,
		Quantity:    d.Quantity,
		UnitPrice:   price,
	}, nil
}

// OrderRepository implements the order repository for PostgreSQL.
type OrderRepository struct {
	conn postgres.Querier
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(conn postgres.Querier) *OrderRepository {
	return &OrderRepository{
		conn: conn,
	}
}

// Insert persists a new order with its items and returns it with ids set.
func (r *OrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	query, args, err := sq.Insert("orders").
		Columns(orderColumns[1:]...).
		Values(
			o.Number,
			o.HotelID,
			o.MerchantID,
			o.ClientID,
			o.CustomerName,
			o.CustomerRoom,
			o.TotalAmount.StringFixed(2),
			o.MerchantCommission.StringFixed(2),
			o.PlatformCommission.StringFixed(2),
			o.HotelCommission.StringFixed(2),
			o.Status,
			o.DeliveryNotes,
			o.EstimatedDelivery,
			o.CreatedAt,
			o.UpdatedAt,
			o.ConfirmedAt,
			o.DeliveredAt,
			o.PickedUp,
			o.PickedUpAt,
		).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build order insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&o.ID); err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	items, err := r.insertItems(ctx, o.ID, o.Items)
	if err != nil {
		return order.Order{}, err
	}
	o.Items = items

	return o, nil
}

func (r *OrderRepository) insertItems(
	ctx context.Context,
	orderID int64,
	items []order.OrderItem,
) ([]order.OrderItem, error) {
	if len(items) == 0 {
		return []order.OrderItem{}, nil
	}

	builder := sq.Insert("order_items").
		Columns("order_id", "product_id", "product_name", "quantity", "unit_price").
		PlaceholderFormat(sq.Dollar)

	for _, item := range items {
		builder = builder.Values(
			orderID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.UnitPrice.StringFixed(2),
		)
	}

	query, args, err := builder.Suffix("RETURNING id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order items insert query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert order items: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if err := rows.Scan(&items[i].ID); err != nil {
			return nil, fmt.Errorf("failed to scan order item id: %w", err)
		}
		items[i].OrderID = orderID
		i++
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return items, nil
}

// Update persists mutable order fields. Items are immutable after creation.
func (r *OrderRepository) Update(ctx context.Context, o order.Order) (order.Order, error) {
	query, args, err := sq.Update("orders").
		Set("status", o.Status).
		Set("delivery_notes", o.DeliveryNotes).
		Set("estimated_delivery", o.EstimatedDelivery).
		Set("updated_at", o.UpdatedAt).
		Set("confirmed_at", o.ConfirmedAt).
		Set("delivered_at", o.DeliveredAt).
		Set("picked_up", o.PickedUp).
		Set("picked_up_at", o.PickedUpAt).
		Where(sq.Eq{"id": o.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build order update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.Order{}, order.ErrOrderNotFound
	}

	return o, nil
}

// GetByID returns one order with its items or order.ErrOrderNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order select query: %w", err)
	}

	var dal OrderDal
	err = r.conn.QueryRow(ctx, query, args...).Scan(
		&dal.Id,
		&dal.Number,
		&dal.HotelId,
		&dal.MerchantId,
		&dal.ClientId,
		&dal.CustomerName,
		&dal.CustomerRoom,
		&dal.TotalAmount,
		&dal.MerchantCommission,
		&dal.PlatformCommission,
		&dal.HotelCommission,
		&dal.Status,
		&dal.DeliveryNotes,
		&dal.EstimatedDelivery,
		&dal.CreatedAt,
		&dal.UpdatedAt,
		&dal.ConfirmedAt,
		&dal.DeliveredAt,
		&dal.PickedUp,
		&dal.PickedUpAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	model, err := dal.ToModel()
	if err != nil {
		return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
	}

	items, err := r.queryItems(ctx, []int64{model.ID})
	if err != nil {
		return nil, err
	}
	model.Items = items

	return model, nil
}

// Query retrieves orders with their items based on filter criteria.
func (r *OrderRepository) Query(
	ctx context.Context,
	filter *order.QueryOrdersModel,
) ([]order.Order, error) {
	builder := sq.Select(orderColumns...).
		From("orders").
		PlaceholderFormat(sq.Dollar)

	if len(filter.Ids) > 0 {
		builder = builder.Where(sq.Eq{"id": filter.Ids})
	}
	if len(filter.HotelIds) > 0 {
		builder = builder.Where(sq.Eq{"hotel_id": filter.HotelIds})
	}
	if len(filter.MerchantIds) > 0 {
		builder = builder.Where(sq.Eq{"merchant_id": filter.MerchantIds})
	}
	if len(filter.ClientIds) > 0 {
		builder = builder.Where(sq.Eq{"client_id": filter.ClientIds})
	}
	builder = builder.OrderBy("created_at DESC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build orders query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	var orderIds []int64
	for rows.Next() {
		var dal OrderDal
		err := rows.Scan(
			&dal.Id,
			&dal.Number,
			&dal.HotelId,
			&dal.MerchantId,
			&dal.ClientId,
			&dal.CustomerName,
			&dal.CustomerRoom,
			&dal.TotalAmount,
			&dal.MerchantCommission,
			&dal.PlatformCommission,
			&dal.HotelCommission,
			&dal.Status,
			&dal.DeliveryNotes,
			&dal.EstimatedDelivery,
			&dal.CreatedAt,
			&dal.UpdatedAt,
			&dal.ConfirmedAt,
			&dal.DeliveredAt,
			&dal.PickedUp,
			&dal.PickedUpAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
		orderIds = append(orderIds, model.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if len(result) == 0 {
		return []order.Order{}, nil
	}

	items, err := r.queryItems(ctx, orderIds)
	if err != nil {
		return nil, err
	}

	for i := range result {
		for _, item := range items {
			if item.OrderID == result[i].ID {
				result[i].Items = append(result[i].Items, item)
			}
		}
	}

	return result, nil
}

func (r *OrderRepository) queryItems(ctx context.Context, orderIds []int64) ([]order.OrderItem, error) {
	query, args, err := sq.Select("id", "order_id", "product_id", "product_name", "quantity", "unit_price").
		From("order_items").
		Where(sq.Eq{"order_id": orderIds}).
		OrderBy("id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order items query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []order.OrderItem
	for rows.Next() {
		var dal itemDal
		err := rows.Scan(
			&dal.Id,
			&dal.OrderId,
			&dal.ProductId,
			&dal.ProductName,
			&dal.Quantity,
			&dal.UnitPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item, err := dal.toModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order item dal to model: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return items, nil
}
