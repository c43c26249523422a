package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staymarket/order/internal/service/models/notification"
	"github.com/staymarket/order/internal/service/models/order"
)

func testOrder(hotelID, merchantID int64, clientID *int64) order.Order {
	return order.Order{
		ID:           1,
		Number:       "ORD-20250901-AB12CD",
		HotelID:      hotelID,
		MerchantID:   merchantID,
		ClientID:     clientID,
		Status:       order.StatusPending,
		CustomerRoom: "312",
	}
}

func receive(t *testing.T, sub *Subscription) notification.Notification {
	t.Helper()
	select {
	case n := <-sub.C():
		return n
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
		return notification.Notification{}
	}
}

func assertNoEvent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case n := <-sub.C():
		t.Fatalf("unexpected notification for order %s", n.OrderNumber)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTopicFor(t *testing.T) {
	cases := []struct {
		role     Role
		entityID int64
		topic    string
	}{
		{RoleAdmin, 0, "admin"},
		{RoleAdmin, 99, "admin"},
		{RoleHotel, 4, "hotel:4"},
		{RoleMerchant, 7, "merchant:7"},
		{RoleClient, 12, "client:12"},
	}

	for _, tc := range cases {
		topic, err := TopicFor(tc.role, tc.entityID)
		require.NoError(t, err)
		assert.Equal(t, tc.topic, topic)
	}

	_, err := TopicFor(Role("janitor"), 1)
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestOrderCreatedFanout(t *testing.T) {
	hub := NewHub()
	admin, err := hub.Subscribe(RoleAdmin, 0)
	require.NoError(t, err)
	hotel, err := hub.Subscribe(RoleHotel, 4)
	require.NoError(t, err)
	merchant, err := hub.Subscribe(RoleMerchant, 7)
	require.NoError(t, err)
	clientID := int64(12)
	client, err := hub.Subscribe(RoleClient, clientID)
	require.NoError(t, err)

	hub.OrderCreated(testOrder(4, 7, &clientID))

	for _, sub := range []*Subscription{admin, hotel, merchant, client} {
		n := receive(t, sub)
		assert.Equal(t, notification.TypeOrderCreated, n.Type)
		assert.Equal(t, "ORD-20250901-AB12CD", n.OrderNumber)
	}
}

func TestFanoutRoutesByEntity(t *testing.T) {
	hub := NewHub()
	hotel4, err := hub.Subscribe(RoleHotel, 4)
	require.NoError(t, err)
	hotel5, err := hub.Subscribe(RoleHotel, 5)
	require.NoError(t, err)

	hub.OrderCreated(testOrder(4, 7, nil))

	n := receive(t, hotel4)
	assert.Equal(t, int64(4), n.HotelID)
	assertNoEvent(t, hotel5)
}

func TestFanoutSkipsMissingClient(t *testing.T) {
	hub := NewHub()
	client, err := hub.Subscribe(RoleClient, 12)
	require.NoError(t, err)
	admin, err := hub.Subscribe(RoleAdmin, 0)
	require.NoError(t, err)

	// Guest order without a client id reaches admin but no client topic.
	hub.OrderCreated(testOrder(4, 7, nil))

	receive(t, admin)
	assertNoEvent(t, client)
}

func TestStatusChangedCarriesMessage(t *testing.T) {
	hub := NewHub()
	admin, err := hub.Subscribe(RoleAdmin, 0)
	require.NoError(t, err)

	o := testOrder(4, 7, nil)
	o.Status = order.StatusDelivered
	hub.StatusChanged(o)

	n := receive(t, admin)
	assert.Equal(t, notification.TypeStatusChanged, n.Type)
	assert.Equal(t, order.StatusDelivered, n.Status)
	assert.Equal(t, "order delivered to reception", n.Message)
}

func TestUnsubscribeStopsDeliveryAndClosesChannel(t *testing.T) {
	hub := NewHub()
	sub, err := hub.Subscribe(RoleHotel, 4)
	require.NoError(t, err)

	hub.Unsubscribe(sub)

	_, open := <-sub.C()
	assert.False(t, open, "channel must be closed after unsubscribe")

	// Publishing to the now-empty topic must not panic.
	hub.OrderCreated(testOrder(4, 7, nil))

	// Double unsubscribe is safe.
	hub.Unsubscribe(sub)
}

func TestPublishDropsSlowSubscriber(t *testing.T) {
	hub := NewHub()
	slow, err := hub.Subscribe(RoleAdmin, 0)
	require.NoError(t, err)

	o := testOrder(4, 7, nil)
	for i := 0; i < subscriptionBuffer+10; i++ {
		hub.OrderCreated(o)
	}

	// The buffer holds the first events; the overflow was dropped without
	// blocking the publisher.
	drained := 0
	for {
		select {
		case <-slow.C():
			drained++
			continue
		default:
		}
		break
	}
	assert.Equal(t, subscriptionBuffer, drained)
}

func TestConcurrentSubscribePublishUnsubscribe(t *testing.T) {
	hub := NewHub()
	o := testOrder(4, 7, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub, err := hub.Subscribe(RoleHotel, 4)
			if err != nil {
				return
			}
			for range sub.C() {
			}
		}()
		go func() {
			defer wg.Done()
			hub.OrderCreated(o)
		}()
	}

	// Let publishes interleave with registrations, then drop everyone.
	time.Sleep(20 * time.Millisecond)
	hub.mu.Lock()
	var subs []*Subscription
	for _, topicSubs := range hub.subs {
		for _, sub := range topicSubs {
			subs = append(subs, sub)
		}
	}
	hub.mu.Unlock()
	for _, sub := range subs {
		hub.Unsubscribe(sub)
	}

	wg.Wait()
}
