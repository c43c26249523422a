package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingOrder() *Order {
	now := time.Now()
	return &Order{
		ID:         1,
		Number:     "ORD-20250901-AB12CD",
		HotelID:    4,
		MerchantID: 7,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestTransitionRejectsSkippingAhead(t *testing.T) {
	o := newPendingOrder()

	err := o.Transition(StatusPreparing, time.Now())

	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, StatusPending, transitionErr.From)
	assert.Equal(t, StatusPreparing, transitionErr.To)
	assert.Equal(t, StatusPending, o.Status, "order must be left unchanged")
	assert.Nil(t, o.ConfirmedAt)
}

func TestTransitionStampsConfirmedAtOnce(t *testing.T) {
	o := newPendingOrder()
	first := time.Now()

	require.NoError(t, o.Transition(StatusConfirmed, first))
	require.NotNil(t, o.ConfirmedAt)
	assert.Equal(t, first, *o.ConfirmedAt)

	// Idempotent re-apply does not re-stamp.
	later := first.Add(time.Minute)
	require.NoError(t, o.Transition(StatusConfirmed, later))
	assert.Equal(t, first, *o.ConfirmedAt)
	assert.Equal(t, later, o.UpdatedAt)
}

func TestTransitionReadyStraightToDelivered(t *testing.T) {
	o := newPendingOrder()
	now := time.Now()

	require.NoError(t, o.Transition(StatusConfirmed, now))
	require.NoError(t, o.Transition(StatusPreparing, now))
	require.NoError(t, o.Transition(StatusReady, now))

	deliveredAt := now.Add(time.Minute)
	require.NoError(t, o.Transition(StatusDelivered, deliveredAt))
	require.NotNil(t, o.DeliveredAt)
	assert.Equal(t, deliveredAt, *o.DeliveredAt)

	// Delivered is terminal: going back to delivering must fail.
	err := o.Transition(StatusDelivering, deliveredAt.Add(time.Minute))
	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, StatusDelivered, o.Status)
}

func TestTransitionTerminalStatesRejectEverything(t *testing.T) {
	for _, terminal := range []Status{StatusDelivered, StatusCancelled} {
		for _, target := range allStatuses() {
			if target == terminal {
				continue
			}
			o := newPendingOrder()
			o.Status = terminal

			err := o.Transition(target, time.Now())
			assert.Error(t, err, "transition %s -> %s must fail", terminal, target)
		}
	}
}

func TestTransitionCancelFromEveryActiveState(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusDelivering} {
		o := newPendingOrder()
		o.Status = from

		require.NoError(t, o.Transition(StatusCancelled, time.Now()), "cancel from %s", from)
		assert.Equal(t, StatusCancelled, o.Status)
	}
}

func TestConfirmPickupRequiresDelivered(t *testing.T) {
	o := newPendingOrder()

	err := o.ConfirmPickup(time.Now())
	require.ErrorIs(t, err, ErrPickupNotDelivered)
	assert.False(t, o.PickedUp)
}

func TestConfirmPickupIsIdempotent(t *testing.T) {
	o := newPendingOrder()
	o.Status = StatusDelivered

	first := time.Now()
	require.NoError(t, o.ConfirmPickup(first))
	require.True(t, o.PickedUp)
	require.NotNil(t, o.PickedUpAt)
	assert.Equal(t, first, *o.PickedUpAt)

	require.NoError(t, o.ConfirmPickup(first.Add(time.Minute)))
	assert.Equal(t, first, *o.PickedUpAt, "second confirmation must not re-stamp")
}

func TestSetTotalAmount(t *testing.T) {
	o := newPendingOrder()
	o.Items = []OrderItem{
		{ProductID: 7, Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
		{ProductID: 9, Quantity: 1, UnitPrice: decimal.RequireFromString("3.40")},
	}

	o.SetTotalAmount()

	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("28.40")),
		"got %s", o.TotalAmount)
}

func TestNewNumberFormat(t *testing.T) {
	now := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)

	number := NewNumber(now)

	assert.Regexp(t, `^ORD-20250901-[0-9A-F]{6}$`, number)
	assert.NotEqual(t, number, NewNumber(now), "numbers must be unique")
}
