package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"

	"wingo-backend/internal/models"
)

const razorpayCurrency = "INR"

// orderCreator is the part of the Razorpay SDK used to open gateway orders
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayService is the PaymentGateway backed by Razorpay
type RazorpayService struct {
	orders        orderCreator
	keyID         string
	keySecret     string
	webhookSecret string
	logger        *zap.Logger
}

func NewRazorpayService(keyID, keySecret, webhookSecret string, logger *zap.Logger) *RazorpayService {
	s := &RazorpayService{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		logger:        logger.Named("razorpay"),
	}
	if keyID != "" && keySecret != "" {
		s.orders = razorpay.NewClient(keyID, keySecret).Order
	}
	return s
}

// Enabled reports whether API credentials are configured
func (s *RazorpayService) Enabled() bool {
	return s.orders != nil
}

// ToPaise converts a rupee amount to the integer paise Razorpay expects
func ToPaise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateOrder opens a Razorpay order for the order total
func (s *RazorpayService) CreateOrder(ctx context.Context, order *models.Order) (*models.GatewayOrder, error) {
	if !s.Enabled() {
		return nil, models.ErrPaymentUnavailable
	}

	amountPaise := ToPaise(order.Payment.Amount)
	orderData := map[string]interface{}{
		"amount":   amountPaise,
		"currency": razorpayCurrency,
		"receipt":  order.ID.String(),
		"notes": map[string]interface{}{
			"order_id": order.ID.String(),
			"user_id":  order.UserID.String(),
		},
	}

	gw, err := s.orders.Create(orderData, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}

	gatewayID, ok := gw["id"].(string)
	if !ok || gatewayID == "" {
		return nil, fmt.Errorf("razorpay order response has no id")
	}

	return &models.GatewayOrder{
		OrderID:  gatewayID,
		KeyID:    s.keyID,
		Amount:   amountPaise,
		Currency: razorpayCurrency,
	}, nil
}

// VerifyPaymentSignature checks the checkout callback signature, an
// HMAC-SHA256 of "order_id|payment_id" keyed with the API secret.
func (s *RazorpayService) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if s.keySecret == "" {
		return false
	}
	return verifyHMAC(s.keySecret, []byte(orderID+"|"+paymentID), signature)
}

// VerifyWebhookSignature checks X-Razorpay-Signature against the raw body.
// Webhooks are rejected outright when no webhook secret is configured.
func (s *RazorpayService) VerifyWebhookSignature(body []byte, signature string) bool {
	if s.webhookSecret == "" {
		return false
	}
	return verifyHMAC(s.webhookSecret, body, signature)
}

func verifyHMAC(secret string, data []byte, signature string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	expectedSignature := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expectedSignature), []byte(signature))
}

type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// ParseWebhook extracts the settlement outcome from a webhook body.
// payment.captured and order.paid complete a payment, payment.failed fails
// it; other events come back with an empty Status.
func (s *RazorpayService) ParseWebhook(body []byte) (*models.PaymentEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, models.Invalid("body", "Invalid webhook payload")
	}

	payment := payload.Payload.Payment.Entity
	event := &models.PaymentEvent{
		Event:          payload.Event,
		GatewayOrderID: payment.OrderID,
		PaymentID:      payment.ID,
	}
	if event.GatewayOrderID == "" {
		event.GatewayOrderID = payload.Payload.Order.Entity.ID
	}

	switch payload.Event {
	case "payment.captured", "order.paid":
		event.Status = models.PaymentStatusCompleted
	case "payment.failed":
		event.Status = models.PaymentStatusFailed
	default:
		s.logger.Debug("ignoring webhook event", zap.String("event", payload.Event))
		return event, nil
	}

	if event.GatewayOrderID == "" {
		return nil, models.Invalid("order_id", "Webhook has no order id")
	}
	return event, nil
}
