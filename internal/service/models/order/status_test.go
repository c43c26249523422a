package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allStatuses() []Status {
	return []Status{
		StatusPending,
		StatusConfirmed,
		StatusPreparing,
		StatusReady,
		StatusDelivering,
		StatusDelivered,
		StatusCancelled,
	}
}

func TestCanTransitionToMatchesTable(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:    {StatusConfirmed, StatusCancelled},
		StatusConfirmed:  {StatusPreparing, StatusCancelled},
		StatusPreparing:  {StatusReady, StatusCancelled},
		StatusReady:      {StatusDelivering, StatusDelivered, StatusCancelled},
		StatusDelivering: {StatusDelivered, StatusCancelled},
		StatusDelivered:  {},
		StatusCancelled:  {},
	}

	for from, targets := range allowed {
		allowedSet := make(map[Status]bool, len(targets))
		for _, to := range targets {
			allowedSet[to] = true
		}
		for _, to := range allStatuses() {
			if from == to {
				continue
			}
			assert.Equal(t, allowedSet[to], from.CanTransitionTo(to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())

	for _, s := range []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusDelivering} {
		assert.False(t, s.IsTerminal(), "status %s", s)
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range allStatuses() {
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStatus("shipped")
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ParseStatus("")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestInvalidTransitionErrorMessage(t *testing.T) {
	err := &InvalidTransitionError{From: StatusPending, To: StatusPreparing}
	assert.Equal(t, "invalid status transition from pending to preparing", err.Error())
}
