package notification

import (
	"fmt"
	"time"

	"github.com/staymarket/order/internal/service/models/order"
)

// Notification event types.
const (
	TypeOrderCreated  = "order.created"
	TypeStatusChanged = "order.status_changed"
)

// Notification is an ephemeral event routed to the topics relevant to an
// order. It is constructed, published and discarded; no history is kept.
type Notification struct {
	Type        string       `json:"type"`
	OrderID     int64        `json:"orderId"`
	OrderNumber string       `json:"orderNumber"`
	Status      order.Status `json:"status"`
	HotelID     int64        `json:"hotelId"`
	MerchantID  int64        `json:"merchantId"`
	ClientID    *int64       `json:"clientId,omitempty"`
	Message     string       `json:"message"`
	Timestamp   time.Time    `json:"timestamp"`
}

var statusMessages = map[order.Status]string{
	order.StatusConfirmed:  "order confirmed by merchant",
	order.StatusPreparing:  "order is being prepared",
	order.StatusReady:      "order is ready for delivery",
	order.StatusDelivering: "order is out for delivery",
	order.StatusDelivered:  "order delivered to reception",
	order.StatusCancelled:  "order cancelled",
}

// StatusMessage returns the human message for a status change, falling back
// to a generic message for unmapped statuses.
func StatusMessage(s order.Status) string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return fmt.Sprintf("status updated to %s", s)
}

// NewOrderCreated builds the event published after a successful order
// creation.
func NewOrderCreated(o order.Order, now time.Time) Notification {
	return Notification{
		Type:        TypeOrderCreated,
		OrderID:     o.ID,
		OrderNumber: o.Number,
		Status:      o.Status,
		HotelID:     o.HotelID,
		MerchantID:  o.MerchantID,
		ClientID:    o.ClientID,
		Message:     fmt.Sprintf("new order %s from room %s", o.Number, o.CustomerRoom),
		Timestamp:   now,
	}
}

// NewStatusChanged builds the event published after a status update.
func NewStatusChanged(o order.Order, now time.Time) Notification {
	return Notification{
		Type:        TypeStatusChanged,
		OrderID:     o.ID,
		OrderNumber: o.Number,
		Status:      o.Status,
		HotelID:     o.HotelID,
		MerchantID:  o.MerchantID,
		ClientID:    o.ClientID,
		Message:     StatusMessage(o.Status),
		Timestamp:   now,
	}
}
