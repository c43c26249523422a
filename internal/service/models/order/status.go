package order

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// Status represents the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusPreparing  Status = "preparing"
	StatusReady      Status = "ready"
	StatusDelivering Status = "delivering"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid order status")

// allowedTransitions is the closed transition table. Terminal states map to an
// empty set. From "ready" an order may skip straight to "delivered" (merchant
// hands off at reception without a delivery leg).
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:    {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:  {StatusPreparing: true, StatusCancelled: true},
	StatusPreparing:  {StatusReady: true, StatusCancelled: true},
	StatusReady:      {StatusDelivering: true, StatusDelivered: true, StatusCancelled: true},
	StatusDelivering: {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// CanTransitionTo reports whether from -> to is a legal transition.
func (s Status) CanTransitionTo(to Status) bool {
	next := allowedTransitions[s]
	return next != nil && next[to]
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0 && allowedTransitions[s] != nil
}

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// ParseStatus validates a raw string against the closed status set.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if _, ok := allowedTransitions[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// InvalidTransitionError reports a rejected status transition. From carries the
// order's actual current status so the caller can reconcile its view.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}
