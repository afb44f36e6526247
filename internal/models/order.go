package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemCategory classifies a delivered item
type ItemCategory string

const (
	CategoryFood    ItemCategory = "food"
	CategoryMedical ItemCategory = "medical"
	CategoryGrocery ItemCategory = "grocery"
)

// Valid reports whether c is a recognized category
func (c ItemCategory) Valid() bool {
	switch c {
	case CategoryFood, CategoryMedical, CategoryGrocery:
		return true
	}
	return false
}

// PaymentMethod is how the customer pays for an order
type PaymentMethod string

const (
	PaymentMethodRazorpay  PaymentMethod = "razorpay"
	PaymentMethodGooglePay PaymentMethod = "googlepay"
)

// Valid reports whether m is a recognized payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodRazorpay, PaymentMethodGooglePay:
		return true
	}
	return false
}

// DefersSettlement reports whether an order paid with m may be confirmed
// before the payment completes.
func (m PaymentMethod) DefersSettlement() bool {
	return m == PaymentMethodGooglePay
}

// PaymentStatus is the settlement state of an order's payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Valid reports whether s is a recognized payment status
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a payment in status s may move to next.
// Completed is final; a failed payment may still be retried to completion.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusCompleted || next == PaymentStatusFailed
	case PaymentStatusFailed:
		return next == PaymentStatusCompleted
	}
	return false
}

type OrderItem struct {
	Name     string       `json:"name"`
	Category ItemCategory `json:"category"`
	Quantity int          `json:"quantity"`
	Price    float64      `json:"price"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a pickup or dropoff point
type Location struct {
	Address     string       `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

type Payment struct {
	Method         PaymentMethod `json:"method"`
	Amount         float64       `json:"amount"`
	Status         PaymentStatus `json:"status"`
	TransactionID  *string       `json:"transactionId,omitempty"`
	GatewayOrderID *string       `json:"gatewayOrderId,omitempty"`
}

// Order represents a delivery order placed by a user
type Order struct {
	ID        uuid.UUID   `json:"id"`
	UserID    uuid.UUID   `json:"userId"`
	Items     []OrderItem `json:"items"`
	Pickup    Location    `json:"pickup"`
	Dropoff   Location    `json:"dropoff"`
	Payment   Payment     `json:"payment"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// CreateOrderRequest represents the request body for placing an order.
// Any amount sent by the client is ignored; the total is computed from items.
type CreateOrderRequest struct {
	Items   []OrderItem `json:"items"`
	Pickup  Location    `json:"pickup"`
	Dropoff Location    `json:"dropoff"`
	Payment struct {
		Method PaymentMethod `json:"method"`
	} `json:"payment"`
}

// UpdateOrderStatusRequest represents the request body for advancing an order
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status"`
}

// PaymentResult is what the payment collaborator reports when a payment settles
type PaymentResult struct {
	TransactionID string        `json:"transactionId"`
	Status        PaymentStatus `json:"status"`
}

// VerifyPaymentRequest carries the checkout callback fields returned by Razorpay
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpayOrderId"`
	RazorpayPaymentID string `json:"razorpayPaymentId"`
	RazorpaySignature string `json:"razorpaySignature"`
}

// GatewayOrder is the checkout data a client needs to open the Razorpay widget
type GatewayOrder struct {
	OrderID  string `json:"orderId"`
	KeyID    string `json:"keyId"`
	Amount   int64  `json:"amount"` // in paise
	Currency string `json:"currency"`
}

// CreateOrderResponse is returned when an order is placed
type CreateOrderResponse struct {
	*Order
	Gateway *GatewayOrder `json:"gateway,omitempty"`
}

// OrderStatusEvent is pushed to tracking subscribers on every transition
type OrderStatusEvent struct {
	OrderID   uuid.UUID   `json:"orderId"`
	From      OrderStatus `json:"from"`
	Status    OrderStatus `json:"status"`
	ChangedAt time.Time   `json:"changedAt"`
}

// PaymentEvent is a gateway notification reduced to what the order ledger
// needs. Status is empty for events that do not settle a payment.
type PaymentEvent struct {
	Event          string
	GatewayOrderID string
	PaymentID      string
	Status         PaymentStatus
}
