package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is the structured postal address kept on a user profile
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

type User struct {
	ID           uuid.UUID  `json:"id"`
	PhoneNumber  string     `json:"phoneNumber"`
	Email        *string    `json:"email,omitempty"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	Name         string     `json:"name"`
	Address      *Address   `json:"address,omitempty"`
	IsVerified   bool       `json:"isVerified"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// Profile is the public projection of a User returned by the profile API
type Profile struct {
	PhoneNumber string     `json:"phoneNumber"`
	Name        string     `json:"name"`
	Address     *Address   `json:"address,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
}

// Profile projects the user onto the fields the profile API exposes
func (u *User) Profile() *Profile {
	return &Profile{
		PhoneNumber: u.PhoneNumber,
		Name:        u.Name,
		Address:     u.Address,
		CreatedAt:   u.CreatedAt,
		LastLogin:   u.LastLogin,
	}
}

// UpdateProfileRequest is a partial update; nil fields are left unchanged
type UpdateProfileRequest struct {
	Name    *string  `json:"name,omitempty"`
	Address *Address `json:"address,omitempty"`
}

// SetPasswordRequest represents the request body for setting a login password
type SetPasswordRequest struct {
	Password string `json:"password"`
}

// PasswordLoginRequest represents the request body for phone + password login
type PasswordLoginRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}
