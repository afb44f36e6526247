package models

import (
	"time"

	"github.com/google/uuid"
)

// SendOTPRequest represents a request to send an OTP
type SendOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

// VerifyOTPRequest represents a request to verify an OTP
type VerifyOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	OTP         string `json:"otp"`
}

// AuthResult is returned by a successful login
type AuthResult struct {
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	IsNewUser bool
}

// VerifyOTPResponse is the JSON body returned after OTP verification
type VerifyOTPResponse struct {
	Message   string `json:"message"`
	Token     string `json:"token"`
	IsNewUser bool   `json:"isNewUser"`
}

// LoginResponse is the JSON body returned after password login
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// MessageResponse is the generic success body
type MessageResponse struct {
	Message string `json:"message"`
}
