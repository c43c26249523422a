package outbox

import (
	"encoding/json"
	"time"

	"github.com/staymarket/order/internal/service/models/notification"
)

// OutboxMessage is an order event staged for delivery to RabbitMQ. Messages
// are inserted in the same transaction as the order mutation and drained by
// the outbox worker.
type OutboxMessage struct {
	ID           int64
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}

// NewOrderEvent stages a notification as an outbox message. Publishing goes
// through the default exchange, which routes by queue name, so the routing
// key must be the queue name; the event type travels in the payload.
func NewOrderEvent(n notification.Notification, queueName string, now time.Time) (OutboxMessage, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return OutboxMessage{}, err
	}

	return OutboxMessage{
		QueueName:   queueName,
		RoutingKey:  queueName,
		Payload:     payload,
		ContentType: "application/json",
		MaxRetries:  5,
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now,
	}, nil
}
