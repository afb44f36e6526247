package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"wingo-backend/internal/models"
)

// UserStore is the persistence the user and OTP services need.
// Lookups wrap models.ErrNotFound when nothing matches; Create returns
// models.ErrPhoneTaken on a duplicate phone number.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error)
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// OrderStore is the persistence the order service needs. Lookups wrap
// models.ErrNotFound when nothing matches. Status and payment
// updates are compare-and-set on the from value and return
// models.ErrInvalidStatusTransition when the stored value has moved on.
type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) (*models.Order, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, from models.PaymentStatus, result models.PaymentResult) (*models.Order, error)
	SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error
}

// TokenIssuer mints session tokens
type TokenIssuer interface {
	GenerateToken(userID uuid.UUID, phoneNumber string) (string, time.Time, error)
}

// PaymentGateway creates gateway orders and checks checkout signatures
type PaymentGateway interface {
	Enabled() bool
	CreateOrder(ctx context.Context, order *models.Order) (*models.GatewayOrder, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

// StatusPublisher receives every successful order status change
type StatusPublisher interface {
	Publish(event models.OrderStatusEvent)
}
