package models

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// phonePattern accepts an optional leading '+' followed by 10-15 digits,
// the first of which is 1-9.
var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)

const (
	// MinPasswordLength is the shortest password accepted by SetPassword
	MinPasswordLength = 6
	// MaxPasswordLength is the bcrypt input limit in bytes
	MaxPasswordLength = 72

	MaxItemNameLength = 200
	MaxItemQuantity   = 10000
	// MaxOrderAmount is exclusive; amounts are stored as NUMERIC(12, 2)
	MaxOrderAmount = 1e10
)

// ValidatePhoneNumber checks the phone number format used for OTP login
func ValidatePhoneNumber(phone string) error {
	if !phonePattern.MatchString(phone) {
		return Invalid("phoneNumber", "Invalid phone number")
	}
	return nil
}

// ValidatePassword checks the minimum password rules
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return Invalid("password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordLength {
		return Invalid("password", fmt.Sprintf("Password must be at most %d bytes", MaxPasswordLength))
	}
	return nil
}

// Validate checks a profile update before it reaches the store
func (r *UpdateProfileRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return Invalid("name", "Name cannot be empty")
	}
	if r.Name != nil && len(*r.Name) > 100 {
		return Invalid("name", "Name is too long")
	}
	return nil
}

// Validate checks every field an order needs before it is persisted
func (r *CreateOrderRequest) Validate() error {
	if len(r.Items) == 0 {
		return Invalid("items", "Order must contain at least one item")
	}
	for i, item := range r.Items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.Name) == "" {
			return Invalid(field+".name", "Item name is required")
		}
		if utf8.RuneCountInString(item.Name) > MaxItemNameLength {
			return Invalid(field+".name", fmt.Sprintf("Item name must be at most %d characters", MaxItemNameLength))
		}
		if !item.Category.Valid() {
			return Invalid(field+".category", fmt.Sprintf("Invalid item category %q", item.Category))
		}
		if item.Quantity < 1 {
			return Invalid(field+".quantity", "Item quantity must be at least 1")
		}
		if item.Quantity > MaxItemQuantity {
			return Invalid(field+".quantity", fmt.Sprintf("Item quantity must be at most %d", MaxItemQuantity))
		}
		if item.Price < 0 || math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
			return Invalid(field+".price", "Item price must be a non-negative number")
		}
		if item.Price >= MaxOrderAmount {
			return Invalid(field+".price", "Item price is too large")
		}
	}
	if OrderTotal(r.Items) >= MaxOrderAmount {
		return Invalid("items", "Order total is too large")
	}
	if err := validateLocation("pickup", r.Pickup); err != nil {
		return err
	}
	if err := validateLocation("dropoff", r.Dropoff); err != nil {
		return err
	}
	if !r.Payment.Method.Valid() {
		return Invalid("payment.method", fmt.Sprintf("Invalid payment method %q", r.Payment.Method))
	}
	return nil
}

func validateLocation(field string, loc Location) error {
	if strings.TrimSpace(loc.Address) == "" {
		return Invalid(field+".address", fmt.Sprintf("%s address is required", field))
	}
	if c := loc.Coordinates; c != nil {
		if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
			return Invalid(field+".coordinates", fmt.Sprintf("%s coordinates are out of range", field))
		}
	}
	return nil
}

// OrderTotal sums quantity x price over items, rounded to paise
func OrderTotal(items []OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += float64(item.Quantity) * item.Price
	}
	return math.Round(total*100) / 100
}
