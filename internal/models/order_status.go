package models

import "fmt"

// OrderStatus is the delivery lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPicked    OrderStatus = "picked"
	OrderStatusInTransit OrderStatus = "in-transit"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderTransitions lists the forward step from each state. Cancellation is
// handled separately since it is reachable from every non-terminal state.
var orderTransitions = map[OrderStatus]OrderStatus{
	OrderStatusPending:   OrderStatusConfirmed,
	OrderStatusConfirmed: OrderStatusPicked,
	OrderStatusPicked:    OrderStatusInTransit,
	OrderStatusInTransit: OrderStatusDelivered,
}

// Valid reports whether s is a recognized order status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPicked,
		OrderStatusInTransit, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether s may move directly to next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.Valid() || s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return orderTransitions[s] == next
}

// ValidateTransition returns ErrInvalidStatusTransition (wrapped with the
// offending states) when s cannot move to next.
func (s OrderStatus) ValidateTransition(next OrderStatus) error {
	if !next.Valid() {
		return Invalid("status", fmt.Sprintf("Invalid order status %q", next))
	}
	if !s.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, s, next)
	}
	return nil
}
