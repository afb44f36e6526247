package handlers

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"wingo-backend/internal/models"
	"wingo-backend/internal/services"
	"wingo-backend/pkg/utils"
)

// maxWebhookBody caps the webhook payload read into memory
const maxWebhookBody = 1 << 20

type RazorpayHandler struct {
	Gateway *services.RazorpayService
	Orders  *services.OrderService
	logger  *zap.Logger
}

func NewRazorpayHandler(gateway *services.RazorpayService, orders *services.OrderService, logger *zap.Logger) *RazorpayHandler {
	return &RazorpayHandler{
		Gateway: gateway,
		Orders:  orders,
		logger:  logger.Named("handlers.razorpay"),
	}
}

// HandleWebhook processes Razorpay webhook events
// POST /api/payments/webhook
func (h *RazorpayHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("failed to read webhook body", zap.Error(err))
		utils.Error(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")
	if !h.Gateway.VerifyWebhookSignature(body, signature) {
		h.logger.Warn("invalid webhook signature")
		utils.Error(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	event, err := h.Gateway.ParseWebhook(body)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("webhook received",
		zap.String("event", event.Event),
		zap.String("gateway_order_id", event.GatewayOrderID))

	// Acknowledge anything we cannot act on so Razorpay stops retrying
	if err := h.Orders.HandlePaymentEvent(r.Context(), event); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			h.logger.Warn("webhook for unknown order", zap.String("gateway_order_id", event.GatewayOrderID))
		} else {
			h.logger.Error("webhook processing failed", zap.Error(err))
		}
	}

	utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
