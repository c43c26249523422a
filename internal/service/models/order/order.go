package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrPickupNotDelivered = errors.New("order must be delivered before pickup confirmation")
)

// OrderItem is one line of an order. ProductName and UnitPrice are snapshots
// taken at order time, not live references to the catalog.
type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"orderId"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// Subtotal returns quantity * unit price for the line.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order represents one customer purchase routed to one merchant through one
// hotel. Commission amounts are computed once at creation and record the split
// at the time of sale.
type Order struct {
	ID         int64  `json:"id"`
	Number     string `json:"number"`
	HotelID    int64  `json:"hotelId"`
	MerchantID int64  `json:"merchantId"`
	ClientID   *int64 `json:"clientId,omitempty"`

	CustomerName string      `json:"customerName"`
	CustomerRoom string      `json:"customerRoom"`
	Items        []OrderItem `json:"items"`

	TotalAmount        decimal.Decimal `json:"totalAmount"`
	MerchantCommission decimal.Decimal `json:"merchantCommission"`
	PlatformCommission decimal.Decimal `json:"platformCommission"`
	HotelCommission    decimal.Decimal `json:"hotelCommission"`

	Status        Status `json:"status"`
	DeliveryNotes string `json:"deliveryNotes,omitempty"`

	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	ConfirmedAt       *time.Time `json:"confirmedAt,omitempty"`
	DeliveredAt       *time.Time `json:"deliveredAt,omitempty"`

	PickedUp   bool       `json:"pickedUp"`
	PickedUpAt *time.Time `json:"pickedUpAt,omitempty"`
}

// SetTotalAmount recomputes the total from line items.
func (o *Order) SetTotalAmount() {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Subtotal())
	}
	o.TotalAmount = sum
}

// Transition applies a status change per the transition table.
//
// Re-applying the current status succeeds without re-stamping lifecycle
// timestamps: it is the metadata-update path, not a true transition. First
// entry into confirmed or delivered stamps the matching timestamp. Any pair
// outside the table leaves the order unchanged and returns
// InvalidTransitionError.
func (o *Order) Transition(to Status, now time.Time) error {
	if to == o.Status {
		o.UpdatedAt = now
		return nil
	}

	if !o.Status.CanTransitionTo(to) {
		return &InvalidTransitionError{From: o.Status, To: to}
	}

	o.Status = to
	o.UpdatedAt = now

	switch to {
	case StatusConfirmed:
		if o.ConfirmedAt == nil {
			t := now
			o.ConfirmedAt = &t
		}
	case StatusDelivered:
		if o.DeliveredAt == nil {
			t := now
			o.DeliveredAt = &t
		}
	}

	return nil
}

// ConfirmPickup records the hotel-reception handoff to the guest. It is
// orthogonal to the status machine and only allowed once the merchant leg has
// finished, i.e. the order is delivered. Idempotent when already picked up.
func (o *Order) ConfirmPickup(now time.Time) error {
	if o.Status != StatusDelivered {
		return ErrPickupNotDelivered
	}
	if o.PickedUp {
		return nil
	}

	o.PickedUp = true
	t := now
	o.PickedUpAt = &t
	o.UpdatedAt = now

	return nil
}
