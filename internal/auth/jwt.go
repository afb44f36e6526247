package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"wingo-backend/internal/models"
	"wingo-backend/internal/timeutil"
)

// DefaultTokenTTL is the session lifetime when none is configured
const DefaultTokenTTL = 24 * time.Hour

// Claims is the session payload bound into every token
type Claims struct {
	UserID      uuid.UUID `json:"userId"`
	PhoneNumber string    `json:"phoneNumber"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies HS256 session tokens. Verification is
// stateless: signature and expiry only.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	clock  timeutil.Clock
}

func NewJWTManager(secret string, ttl time.Duration, issuer string) *JWTManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		clock:  timeutil.Now,
	}
}

// SetClock overrides the time source used for issuing and validating tokens
func (j *JWTManager) SetClock(clock timeutil.Clock) {
	j.clock = clock
}

// GenerateToken creates a signed token for the user and returns its expiry
func (j *JWTManager) GenerateToken(userID uuid.UUID, phoneNumber string) (string, time.Time, error) {
	now := j.clock()
	expiresAt := now.Add(j.ttl)

	claims := &Claims{
		UserID:      userID,
		PhoneNumber: phoneNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies a token and returns its claims. Every failure
// wraps models.ErrUnauthenticated.
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.clock),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", models.ErrUnauthenticated)
	}

	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: token has no user", models.ErrUnauthenticated)
	}

	return claims, nil
}
