package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wingo-backend/internal/middleware"
	"wingo-backend/internal/models"
	"wingo-backend/internal/services"
	"wingo-backend/internal/tracking"
	"wingo-backend/pkg/utils"
)

const (
	trackWriteWait  = 10 * time.Second
	trackPongWait   = 60 * time.Second
	trackPingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type OrderHandler struct {
	Service  *services.OrderService
	Receipts *services.ReceiptService
	Hub      *tracking.Hub
	logger   *zap.Logger
}

func NewOrderHandler(s *services.OrderService, receipts *services.ReceiptService, hub *tracking.Hub, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		Service:  s,
		Receipts: receipts,
		Hub:      hub,
		logger:   logger.Named("handlers.order"),
	}
}

// orderParams resolves the caller and the {id} path variable
func orderParams(w http.ResponseWriter, r *http.Request) (userID, orderID uuid.UUID, ok bool) {
	userID, ok = middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Invalid token")
		return uuid.Nil, uuid.Nil, false
	}
	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, http.StatusNotFound, "Order not found")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, orderID, true
}

// Create places an order
// POST /api/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	var req models.CreateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.Service.CreateOrder(r.Context(), userID, &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusCreated, resp)
}

// List returns the caller's orders
// GET /api/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	orders, err := h.Service.ListOrders(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, orders)
}

// Get returns one order
// GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, orderID, ok := orderParams(w, r)
	if !ok {
		return
	}

	order, err := h.Service.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, order)
}

// UpdateStatus advances the order lifecycle
// PUT /api/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, orderID, ok := orderParams(w, r)
	if !ok {
		return
	}

	var req models.UpdateOrderStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.Service.UpdateStatus(r.Context(), userID, orderID, req.Status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, order)
}

// VerifyPayment completes a Razorpay checkout
// POST /api/orders/{id}/payment/verify
func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, orderID, ok := orderParams(w, r)
	if !ok {
		return
	}

	var req models.VerifyPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.Service.VerifyPayment(r.Context(), userID, orderID, &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, order)
}

// Receipt renders the order receipt as PDF
// GET /api/orders/{id}/receipt
func (h *OrderHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	userID, orderID, ok := orderParams(w, r)
	if !ok {
		return
	}

	order, err := h.Service.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := h.Receipts.Render(&buf, order); err != nil {
		writeError(w, r, h.logger, fmt.Errorf("failed to render receipt: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt-%s.pdf"`, order.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Track streams status changes for one order over a websocket. The current
// status is sent first.
// GET /api/orders/{id}/track
func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	userID, orderID, ok := orderParams(w, r)
	if !ok {
		return
	}

	order, err := h.Service.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	events, unsubscribe := h.Hub.Subscribe(orderID)
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("order_id", orderID.String()), zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain client frames so close and pong messages are processed
	done := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(trackPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(trackPongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snapshot := models.OrderStatusEvent{
		OrderID:   order.ID,
		From:      order.Status,
		Status:    order.Status,
		ChangedAt: order.UpdatedAt,
	}
	if err := h.writeEvent(conn, snapshot); err != nil {
		return
	}
	if order.Status.IsTerminal() {
		h.closeTrack(conn, websocket.CloseNormalClosure, string(order.Status))
		return
	}

	ping := time.NewTicker(trackPingPeriod)
	defer ping.Stop()

	for {
		select {
		case event, open := <-events:
			if !open {
				h.closeTrack(conn, websocket.CloseGoingAway, "server shutting down")
				return
			}
			if err := h.writeEvent(conn, event); err != nil {
				return
			}
			if event.Status.IsTerminal() {
				h.closeTrack(conn, websocket.CloseNormalClosure, string(event.Status))
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(trackWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *OrderHandler) writeEvent(conn *websocket.Conn, event models.OrderStatusEvent) error {
	conn.SetWriteDeadline(time.Now().Add(trackWriteWait))
	if err := conn.WriteJSON(event); err != nil {
		h.logger.Debug("tracking client gone", zap.String("order_id", event.OrderID.String()), zap.Error(err))
		return err
	}
	return nil
}

func (h *OrderHandler) closeTrack(conn *websocket.Conn, code int, reason string) {
	conn.SetWriteDeadline(time.Now().Add(trackWriteWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}
