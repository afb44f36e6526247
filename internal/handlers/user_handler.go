package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"wingo-backend/internal/middleware"
	"wingo-backend/internal/models"
	"wingo-backend/internal/services"
	"wingo-backend/pkg/utils"
)

type UserHandler struct {
	Service *services.UserService
	logger  *zap.Logger
}

func NewUserHandler(s *services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{Service: s, logger: logger.Named("handlers.user")}
}

// GetProfile returns the caller's profile
// GET /api/user/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	profile, err := h.Service.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, profile)
}

// UpdateProfile changes name and/or address
// PUT /api/user/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	var req models.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.Service.UpdateProfile(r.Context(), userID, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, models.MessageResponse{Message: "Profile updated successfully"})
}

// SetPassword enables phone + password login
// PUT /api/user/password
func (h *UserHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	var req models.SetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Service.SetPassword(r.Context(), userID, req.Password); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, models.MessageResponse{Message: "Password updated successfully"})
}
