package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"wingo-backend/internal/models"
	"wingo-backend/pkg/utils"
)

// writeError maps a service error onto a status code and a client-safe
// message. Anything unrecognized is logged and reported as a 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var validation *models.ValidationError

	switch {
	case errors.Is(err, models.ErrInvalidOrExpiredOTP):
		utils.Error(w, http.StatusBadRequest, "Invalid or expired OTP")
	case errors.As(err, &validation):
		utils.Error(w, http.StatusBadRequest, validation.Message)
	case errors.Is(err, models.ErrInvalidInput):
		utils.Error(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, models.ErrUnauthenticated):
		utils.Error(w, http.StatusUnauthorized, "Invalid token")
	case errors.Is(err, models.ErrInvalidCredentials):
		utils.Error(w, http.StatusUnauthorized, "Invalid phone number or password")
	case errors.Is(err, models.ErrUserNotFound):
		utils.Error(w, http.StatusNotFound, "User not found")
	case errors.Is(err, models.ErrOrderNotFound):
		utils.Error(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, models.ErrNotFound):
		utils.Error(w, http.StatusNotFound, "Not found")
	case errors.Is(err, models.ErrInvalidStatusTransition):
		utils.Error(w, http.StatusConflict, "Invalid status transition")
	case errors.Is(err, models.ErrPaymentPending):
		utils.Error(w, http.StatusConflict, "Payment has not been completed")
	case errors.Is(err, models.ErrPaymentUnavailable):
		utils.Error(w, http.StatusServiceUnavailable, "Online payments are not available")
	default:
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads the request body into v, answering 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
