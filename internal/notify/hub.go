package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/staymarket/order/internal/service/models/notification"
	"github.com/staymarket/order/internal/service/models/order"
)

// Role identifies the kind of party a subscriber represents.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHotel    Role = "hotel"
	RoleMerchant Role = "merchant"
	RoleClient   Role = "client"

	TopicAdmin = "admin"
)

var ErrUnknownRole = errors.New("unknown subscriber role")

// subscriptionBuffer bounds the per-subscriber channel. Delivery is
// best-effort: a subscriber that stops draining loses events instead of
// blocking the publisher.
const subscriptionBuffer = 16

// TopicFor maps a subscriber identity to its topic. Admin subscribers ignore
// the entity id; every other role is scoped to one entity.
func TopicFor(role Role, entityID int64) (string, error) {
	switch role {
	case RoleAdmin:
		return TopicAdmin, nil
	case RoleHotel, RoleMerchant, RoleClient:
		return fmt.Sprintf("%s:%d", role, entityID), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
}

// Subscription is a live-presence handle onto one topic. Events arrive on C
// until Unsubscribe closes it.
type Subscription struct {
	id    string
	topic string
	ch    chan notification.Notification
}

// C returns the channel carrying published notifications.
func (s *Subscription) C() <-chan notification.Notification {
	return s.ch
}

// Topic returns the topic the subscription is placed in.
func (s *Subscription) Topic() string {
	return s.topic
}

// Hub is the in-process topic fanout. The registry lock is independent of all
// order and stock locks, so publishing never contends with order operations.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[string]*Subscription
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[string]*Subscription),
	}
}

// Subscribe places a subscriber into the topic matching its declared identity.
func (h *Hub) Subscribe(role Role, entityID int64) (*Subscription, error) {
	topic, err := TopicFor(role, entityID)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		id:    uuid.NewString(),
		topic: topic,
		ch:    make(chan notification.Notification, subscriptionBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[string]*Subscription)
	}
	h.subs[topic][sub.id] = sub

	return sub, nil
}

// Unsubscribe removes the subscription and closes its channel. Safe to call
// more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	topicSubs, ok := h.subs[sub.topic]
	if !ok {
		return
	}
	if _, ok := topicSubs[sub.id]; !ok {
		return
	}
	delete(topicSubs, sub.id)
	if len(topicSubs) == 0 {
		delete(h.subs, sub.topic)
	}
	close(sub.ch)
}

// Publish delivers a notification to every current subscriber of the topic.
// At-most-once, best-effort: subscribers with a full buffer are skipped.
func (h *Hub) Publish(topic string, n notification.Notification) {
	// Sends are non-blocking, so holding the read lock keeps Unsubscribe
	// from closing a channel mid-publish.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs[topic] {
		select {
		case sub.ch <- n:
		default:
			slog.Warn("Dropping notification for slow subscriber",
				"topic", topic,
				"order_number", n.OrderNumber,
			)
		}
	}
}

// publishOrderEvent fans an event out to the admin topic plus the hotel,
// merchant and (when present) client topics of the order.
func (h *Hub) publishOrderEvent(o order.Order, n notification.Notification) {
	h.Publish(TopicAdmin, n)
	h.Publish(fmt.Sprintf("%s:%d", RoleHotel, o.HotelID), n)
	h.Publish(fmt.Sprintf("%s:%d", RoleMerchant, o.MerchantID), n)
	if o.ClientID != nil {
		h.Publish(fmt.Sprintf("%s:%d", RoleClient, *o.ClientID), n)
	}
}

// OrderCreated publishes the new-order event for an order.
func (h *Hub) OrderCreated(o order.Order) {
	h.publishOrderEvent(o, notification.NewOrderCreated(o, time.Now()))
}

// StatusChanged publishes the status-change event for an order.
func (h *Hub) StatusChanged(o order.Order) {
	h.publishOrderEvent(o, notification.NewStatusChanged(o, time.Now()))
}
