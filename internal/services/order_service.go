package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wingo-backend/internal/metrics"
	"wingo-backend/internal/models"
	"wingo-backend/internal/timeutil"
)

// OrderService owns the delivery order lifecycle and its payment sub-status
type OrderService struct {
	orders    OrderStore
	gateway   PaymentGateway
	publisher StatusPublisher
	logger    *zap.Logger
	clock     timeutil.Clock
}

// NewOrderService builds the service. gateway and publisher may be nil.
func NewOrderService(orders OrderStore, gateway PaymentGateway, publisher StatusPublisher, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:    orders,
		gateway:   gateway,
		publisher: publisher,
		logger:    logger.Named("order"),
		clock:     timeutil.Now,
	}
}

func (s *OrderService) SetClock(clock timeutil.Clock) {
	s.clock = clock
}

func (s *OrderService) gatewayEnabled() bool {
	return s.gateway != nil && s.gateway.Enabled()
}

// CreateOrder places a pending order for userID. The amount is the item
// total; for Razorpay orders a gateway order is opened when the gateway is
// configured. A gateway failure leaves the order in place without checkout
// data.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:      uuid.New(),
		UserID:  userID,
		Items:   req.Items,
		Pickup:  req.Pickup,
		Dropoff: req.Dropoff,
		Payment: models.Payment{
			Method: req.Payment.Method,
			Amount: models.OrderTotal(req.Items),
			Status: models.PaymentStatusPending,
		},
		Status: models.OrderStatusPending,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	metrics.OrdersCreatedTotal.WithLabelValues(string(order.Payment.Method)).Inc()

	logger := s.logger.With(zap.String("order_id", order.ID.String()), zap.String("user_id", userID.String()))
	logger.Info("order created",
		zap.Float64("amount", order.Payment.Amount),
		zap.String("payment_method", string(order.Payment.Method)))

	resp := &models.CreateOrderResponse{Order: order}
	if order.Payment.Method != models.PaymentMethodRazorpay || !s.gatewayEnabled() {
		return resp, nil
	}

	gw, err := s.gateway.CreateOrder(ctx, order)
	if err != nil {
		logger.Warn("failed to open gateway order", zap.Error(err))
		return resp, nil
	}
	if err := s.orders.SetGatewayOrderID(ctx, order.ID, gw.OrderID); err != nil {
		logger.Warn("failed to store gateway order id", zap.String("gateway_order_id", gw.OrderID), zap.Error(err))
		return resp, nil
	}
	order.Payment.GatewayOrderID = &gw.OrderID
	resp.Gateway = gw
	return resp, nil
}

// GetOrder returns the order if userID placed it. Orders of other users are
// reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, models.ErrOrderNotFound
	}
	return order, nil
}

// ListOrders returns the user's orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return orders, nil
}

// UpdateStatus moves an order one step along its lifecycle. Confirming an
// order needs a completed payment unless the method defers settlement.
func (s *OrderService) UpdateStatus(ctx context.Context, userID, orderID uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if err := from.ValidateTransition(next); err != nil {
		return nil, err
	}
	if next == models.OrderStatusConfirmed &&
		order.Payment.Status != models.PaymentStatusCompleted &&
		!order.Payment.Method.DefersSettlement() {
		return nil, models.ErrPaymentPending
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, from, next)
	if err != nil {
		return nil, err
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(from), string(next)).Inc()
	s.logger.Info("order status changed",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(next)))

	if s.publisher != nil {
		s.publisher.Publish(models.OrderStatusEvent{
			OrderID:   orderID,
			From:      from,
			Status:    next,
			ChangedAt: s.clock(),
		})
	}
	return updated, nil
}

// ApplyPaymentResult records a settlement reported by the payment
// collaborator. Repeating the current status is a no-op so gateway retries
// are harmless.
func (s *OrderService) ApplyPaymentResult(ctx context.Context, orderID uuid.UUID, result models.PaymentResult) (*models.Order, error) {
	if result.Status != models.PaymentStatusCompleted && result.Status != models.PaymentStatusFailed {
		return nil, models.Invalid("status", fmt.Sprintf("Invalid payment status %q", result.Status))
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Payment.Status == result.Status {
		return order, nil
	}
	if !order.Payment.Status.CanTransitionTo(result.Status) {
		return nil, fmt.Errorf("%w: payment %s -> %s",
			models.ErrInvalidStatusTransition, order.Payment.Status, result.Status)
	}

	updated, err := s.orders.UpdatePayment(ctx, orderID, order.Payment.Status, result)
	if err != nil {
		return nil, err
	}

	metrics.PaymentUpdatesTotal.WithLabelValues(string(result.Status)).Inc()
	s.logger.Info("payment updated",
		zap.String("order_id", orderID.String()),
		zap.String("status", string(result.Status)),
		zap.String("transaction_id", result.TransactionID))
	return updated, nil
}

// VerifyPayment completes a Razorpay payment from the checkout callback
func (s *OrderService) VerifyPayment(ctx context.Context, userID, orderID uuid.UUID, req *models.VerifyPaymentRequest) (*models.Order, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Payment.Method != models.PaymentMethodRazorpay {
		return nil, models.Invalid("payment.method", "Order is not paid with Razorpay")
	}
	if !s.gatewayEnabled() {
		return nil, models.ErrPaymentUnavailable
	}

	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		return nil, models.Invalid("razorpaySignature", "Missing payment verification fields")
	}
	if order.Payment.GatewayOrderID == nil || *order.Payment.GatewayOrderID != req.RazorpayOrderID {
		return nil, models.Invalid("razorpayOrderId", "Payment does not belong to this order")
	}
	if !s.gateway.VerifyPaymentSignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		s.logger.Warn("invalid payment signature", zap.String("order_id", orderID.String()))
		return nil, models.Invalid("razorpaySignature", "Invalid payment signature")
	}

	return s.ApplyPaymentResult(ctx, orderID, models.PaymentResult{
		TransactionID: req.RazorpayPaymentID,
		Status:        models.PaymentStatusCompleted,
	})
}

// HandlePaymentEvent applies a verified gateway webhook. Events that do not
// settle a payment, and late events for a payment that has already
// completed, are ignored.
func (s *OrderService) HandlePaymentEvent(ctx context.Context, event *models.PaymentEvent) error {
	if event.Status == "" {
		return nil
	}

	order, err := s.orders.GetByGatewayOrderID(ctx, event.GatewayOrderID)
	if err != nil {
		return err
	}

	_, err = s.ApplyPaymentResult(ctx, order.ID, models.PaymentResult{
		TransactionID: event.PaymentID,
		Status:        event.Status,
	})
	if errors.Is(err, models.ErrInvalidStatusTransition) {
		s.logger.Info("ignoring stale payment event",
			zap.String("order_id", order.ID.String()),
			zap.String("event", event.Event))
		return nil
	}
	return err
}
