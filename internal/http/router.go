package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"wingo-backend/internal/handlers"
	"wingo-backend/internal/middleware"
	"wingo-backend/pkg/utils"
)

type RouterOptions struct {
	MetricsEnabled bool
}

func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	orderHandler *handlers.OrderHandler,
	razorpayHandler *handlers.RazorpayHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
	logger *zap.Logger,
	opts RouterOptions,
) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.PanicRecovery(logger))
	r.Use(middleware.NewAPILoggingMiddleware(logger).Handler)
	if opts.MetricsEnabled {
		r.Use(middleware.MetricsMiddleware)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.Error(w, http.StatusNotFound, "Not found")
	})

	// Public API routes - Authentication
	r.HandleFunc("/api/send-otp", authHandler.SendOTP).Methods("POST")
	r.HandleFunc("/api/verify-otp", authHandler.VerifyOTP).Methods("POST")
	r.HandleFunc("/api/login", authHandler.Login).Methods("POST")

	// Gateway callbacks authenticate by signature
	r.HandleFunc("/api/payments/webhook", razorpayHandler.HandleWebhook).Methods("POST")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/user/profile", userHandler.GetProfile).Methods("GET")
	api.HandleFunc("/user/profile", userHandler.UpdateProfile).Methods("PUT")
	api.HandleFunc("/user/password", userHandler.SetPassword).Methods("PUT")

	api.HandleFunc("/orders", orderHandler.Create).Methods("POST")
	api.HandleFunc("/orders", orderHandler.List).Methods("GET")
	api.HandleFunc("/orders/{id}", orderHandler.Get).Methods("GET")
	api.HandleFunc("/orders/{id}/status", orderHandler.UpdateStatus).Methods("PUT")
	api.HandleFunc("/orders/{id}/payment/verify", orderHandler.VerifyPayment).Methods("POST")
	api.HandleFunc("/orders/{id}/receipt", orderHandler.Receipt).Methods("GET")
	api.HandleFunc("/orders/{id}/track", orderHandler.Track).Methods("GET")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	if opts.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}
