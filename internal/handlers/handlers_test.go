package handlers_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wingo-backend/internal/auth"
	"wingo-backend/internal/handlers"
	"wingo-backend/internal/health"
	apphttp "wingo-backend/internal/http"
	"wingo-backend/internal/middleware"
	"wingo-backend/internal/models"
	"wingo-backend/internal/otpstore"
	"wingo-backend/internal/services"
	"wingo-backend/internal/sms"
	"wingo-backend/internal/testutil"
	"wingo-backend/internal/tracking"
)

const (
	testPhone     = "+919876543210"
	webhookSecret = "whsec_test"
)

type app struct {
	router  *mux.Router
	otp     *services.OTPService
	orders  *services.OrderService
	sender  *sms.MockSMSService
	jwt     *auth.JWTManager
	hub     *tracking.Hub
	orderDB *testutil.OrderStore
}

func newApp(t *testing.T) *app {
	t.Helper()
	logger := zap.NewNop()

	a := &app{
		sender:  sms.NewMockSMSService(logger, otpstore.DefaultTTL),
		jwt:     auth.NewJWTManager("test-secret", time.Hour, "wingo-test"),
		hub:     tracking.NewHub(),
		orderDB: testutil.NewOrderStore(),
	}
	t.Cleanup(a.hub.Close)

	users := testutil.NewUserStore()
	a.otp = services.NewOTPService(otpstore.NewMemoryStore(otpstore.Options{}), users, a.jwt, a.sender, logger)
	userService := services.NewUserService(users, a.jwt, logger)
	gateway := services.NewRazorpayService("", "", webhookSecret, logger)
	a.orders = services.NewOrderService(a.orderDB, gateway, a.hub, logger)

	checker := health.NewHealthChecker()
	checker.Register("database", func(ctx context.Context) error { return nil })

	a.router = apphttp.NewRouter(
		handlers.NewAuthHandler(a.otp, userService, logger),
		handlers.NewUserHandler(userService, logger),
		handlers.NewOrderHandler(a.orders, services.NewReceiptService(), a.hub, logger),
		handlers.NewRazorpayHandler(gateway, a.orders, logger),
		handlers.NewHealthHandler(checker),
		middleware.NewAuthMiddleware(a.jwt),
		logger,
		apphttp.RouterOptions{MetricsEnabled: true},
	)
	return a
}

func (a *app) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// login runs the OTP flow and returns the session token
func (a *app) login(t *testing.T, phone string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/send-otp", "", map[string]string{"phoneNumber": phone})
	require.Equal(t, http.StatusOK, rec.Code)
	a.otp.Wait()

	code, ok := a.sender.LastCode(phone)
	require.True(t, ok)

	rec = a.do(t, http.MethodPost, "/api/verify-otp", "", map[string]string{"phoneNumber": phone, "otp": code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)["token"].(string)
}

func TestOTPLoginFlow(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/api/send-otp", "", map[string]string{"phoneNumber": testPhone})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OTP sent successfully", decode(t, rec)["message"])
	a.otp.Wait()

	code, ok := a.sender.LastCode(testPhone)
	require.True(t, ok)

	rec = a.do(t, http.MethodPost, "/api/verify-otp", "", map[string]string{"phoneNumber": testPhone, "otp": code})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Authentication successful", body["message"])
	assert.Equal(t, true, body["isNewUser"])
	assert.NotEmpty(t, body["token"])

	rec = a.do(t, http.MethodPost, "/api/verify-otp", "", map[string]string{"phoneNumber": testPhone, "otp": code})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired OTP", decode(t, rec)["error"])

	token := a.login(t, testPhone)
	claims, err := a.jwt.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, testPhone, claims.PhoneNumber)
}

func TestSendOTP_InvalidPhone(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/api/send-otp", "", map[string]string{"phoneNumber": "12ab"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid phone number", decode(t, rec)["error"])

	req := httptest.NewRequest(http.MethodPost, "/api/send-otp", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfile(t *testing.T) {
	a := newApp(t)
	token := a.login(t, testPhone)

	rec := a.do(t, http.MethodGet, "/api/user/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testPhone, decode(t, rec)["phoneNumber"])

	rec = a.do(t, http.MethodPut, "/api/user/profile", token, map[string]interface{}{
		"name":    "Asha",
		"address": map[string]string{"street": "12 MG Road", "city": "Pune", "state": "MH", "pincode": "411001"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Profile updated successfully", decode(t, rec)["message"])

	rec = a.do(t, http.MethodGet, "/api/user/profile", token, nil)
	body := decode(t, rec)
	assert.Equal(t, "Asha", body["name"])
	assert.Equal(t, "Pune", body["address"].(map[string]interface{})["city"])
}

func TestProfile_Unauthenticated(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/api/user/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPut, "/api/user/profile", "garbage", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfile_UnknownUser(t *testing.T) {
	a := newApp(t)
	token, _, err := a.jwt.GenerateToken(uuid.New(), testPhone)
	require.NoError(t, err)

	rec := a.do(t, http.MethodGet, "/api/user/profile", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decode(t, rec)["error"])
}

func TestPasswordLogin(t *testing.T) {
	a := newApp(t)
	token := a.login(t, testPhone)

	rec := a.do(t, http.MethodPost, "/api/login", "", map[string]string{"phoneNumber": testPhone, "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPut, "/api/user/password", token, map[string]string{"password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/login", "", map[string]string{"phoneNumber": testPhone, "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["token"])
}

func TestSetPassword_TooLong(t *testing.T) {
	a := newApp(t)
	token := a.login(t, testPhone)

	rec := a.do(t, http.MethodPut, "/api/user/password", token, map[string]string{"password": strings.Repeat("a", 73)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password must be at most 72 bytes", decode(t, rec)["error"])
}

func orderBody(method string) map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{
			{"name": "Rice 5kg", "category": "grocery", "quantity": 2, "price": 150},
		},
		"pickup":  map[string]interface{}{"address": "Store, FC Road"},
		"dropoff": map[string]interface{}{"address": "12 MG Road", "coordinates": map[string]float64{"lat": 18.5, "lng": 73.8}},
		"payment": map[string]interface{}{"method": method, "amount": 1},
	}
}

func TestOrders(t *testing.T) {
	a := newApp(t)
	token := a.login(t, testPhone)
	other := a.login(t, "+919123456789")

	rec := a.do(t, http.MethodPost, "/api/orders", token, orderBody("googlepay"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	id := created["id"].(string)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, 300.0, created["payment"].(map[string]interface{})["amount"])

	rec = a.do(t, http.MethodGet, "/api/orders/"+id, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/orders/"+id, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found", decode(t, rec)["error"])

	rec = a.do(t, http.MethodGet, "/api/orders/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPut, "/api/orders/"+id+"/status", token, map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPut, "/api/orders/"+id+"/status", token, map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "confirmed", decode(t, rec)["status"])

	rec = a.do(t, http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = a.do(t, http.MethodGet, "/api/orders/"+id+"/receipt", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestOrders_Validation(t *testing.T) {
	a := newApp(t)
	token := a.login(t, testPhone)

	body := orderBody("cash")
	rec := a.do(t, http.MethodPost, "/api/orders", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = orderBody("razorpay")
	body["items"] = []interface{}{}
	rec = a.do(t, http.MethodPost, "/api/orders", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Order must contain at least one item", decode(t, rec)["error"])

	body = orderBody("googlepay")
	body["items"] = []map[string]interface{}{
		{"name": "Gold bar", "category": "grocery", "quantity": 1, "price": 1e12},
	}
	rec = a.do(t, http.MethodPost, "/api/orders", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Item price is too large", decode(t, rec)["error"])

	// Razorpay orders cannot be confirmed before payment
	rec = a.do(t, http.MethodPost, "/api/orders", token, orderBody("razorpay"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["id"].(string)
	rec = a.do(t, http.MethodPut, "/api/orders/"+id+"/status", token, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/orders/"+id+"/payment/verify", token, map[string]string{
		"razorpayOrderId": "order_1", "razorpayPaymentId": "pay_1", "razorpaySignature": "sig",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func sign(body []byte) string {
	h := hmac.New(sha256.New, []byte(webhookSecret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func TestWebhook(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()

	order := &models.Order{
		UserID:  uuid.New(),
		Items:   []models.OrderItem{{Name: "Milk", Category: models.CategoryGrocery, Quantity: 1, Price: 30}},
		Payment: models.Payment{Method: models.PaymentMethodRazorpay, Amount: 30, Status: models.PaymentStatusPending},
		Status:  models.OrderStatusPending,
	}
	require.NoError(t, a.orderDB.Create(ctx, order))
	require.NoError(t, a.orderDB.SetGatewayOrderID(ctx, order.ID, "order_W1"))

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_W1","order_id":"order_W1"}}}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", "bad")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", sign(body))
	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := a.orderDB.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Payment.Status)
	assert.Equal(t, "pay_W1", *stored.Payment.TransactionID)
}

func TestHealth(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	rec = a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTrackOrder(t *testing.T) {
	a := newApp(t)
	token := a.login(t, testPhone)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	rec := a.do(t, http.MethodPost, "/api/orders", token, orderBody("googlepay"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["id"].(string)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/orders/" + id + "/track"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snapshot models.OrderStatusEvent
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Equal(t, models.OrderStatusPending, snapshot.Status)

	// The snapshot is written after the subscription is registered
	orderID := uuid.MustParse(id)
	require.Equal(t, 1, a.hub.Subscribers(orderID))

	claims, err := a.jwt.ValidateToken(token)
	require.NoError(t, err)
	_, err = a.orders.UpdateStatus(context.Background(), claims.UserID, orderID, models.OrderStatusConfirmed)
	require.NoError(t, err)

	var event models.OrderStatusEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, models.OrderStatusPending, event.From)
	assert.Equal(t, models.OrderStatusConfirmed, event.Status)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTrackOrder_TerminalClosesAfterSnapshot(t *testing.T) {
	a := newApp(t)
	token := a.login(t, testPhone)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	rec := a.do(t, http.MethodPost, "/api/orders", token, orderBody("googlepay"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["id"].(string)

	rec = a.do(t, http.MethodPut, "/api/orders/"+id+"/status", token, map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/orders/" + id + "/track"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snapshot models.OrderStatusEvent
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Equal(t, models.OrderStatusCancelled, snapshot.Status)

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
