package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"wingo-backend/internal/models"
	"wingo-backend/internal/services"
	"wingo-backend/pkg/utils"
)

type AuthHandler struct {
	OTPService  *services.OTPService
	UserService *services.UserService
	logger      *zap.Logger
}

func NewAuthHandler(otpService *services.OTPService, userService *services.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		OTPService:  otpService,
		UserService: userService,
		logger:      logger.Named("handlers.auth"),
	}
}

// SendOTP issues a login code for a phone number
// POST /api/send-otp
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req models.SendOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.OTPService.SendOTP(r.Context(), req.PhoneNumber); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, models.MessageResponse{Message: "OTP sent successfully"})
}

// VerifyOTP exchanges a valid code for a session token
// POST /api/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.OTPService.VerifyOTP(r.Context(), req.PhoneNumber, req.OTP)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, models.VerifyOTPResponse{
		Message:   "Authentication successful",
		Token:     result.Token,
		IsNewUser: result.IsNewUser,
	})
}

// Login authenticates with phone number and password
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.UserService.LoginWithPassword(r.Context(), req.PhoneNumber, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, models.LoginResponse{
		Message: "Login successful",
		Token:   result.Token,
	})
}
