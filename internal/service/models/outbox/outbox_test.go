package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staymarket/order/internal/service/models/notification"
	"github.com/staymarket/order/internal/service/models/order"
)

func TestNewOrderEventRoutesToDeclaredQueue(t *testing.T) {
	n := notification.Notification{
		Type:        notification.TypeOrderCreated,
		OrderID:     1,
		OrderNumber: "ORD-20260901-AB12CD",
		Status:      order.StatusPending,
		HotelID:     4,
		MerchantID:  2,
		Message:     "new order ORD-20260901-AB12CD from room 312",
		Timestamp:   time.Now(),
	}

	msg, err := NewOrderEvent(n, "order.events", time.Now())
	require.NoError(t, err)

	// The default exchange routes by queue name; any other routing key
	// makes the message unroutable and silently dropped.
	assert.Equal(t, "", msg.ExchangeName)
	assert.Equal(t, "order.events", msg.RoutingKey)
	assert.Equal(t, "order.events", msg.QueueName)
	assert.Equal(t, "application/json", msg.ContentType)

	var decoded notification.Notification
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, notification.TypeOrderCreated, decoded.Type)
	assert.Equal(t, "ORD-20260901-AB12CD", decoded.OrderNumber)
}

func TestNewOrderEventStatusChangedRoutingUnaffectedByType(t *testing.T) {
	n := notification.Notification{
		Type:   notification.TypeStatusChanged,
		Status: order.StatusConfirmed,
	}

	msg, err := NewOrderEvent(n, "order.events", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "order.events", msg.RoutingKey)
}
