package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wingo-backend/internal/models"
)

func TestJWT_Roundtrip(t *testing.T) {
	j := NewJWTManager("secret", 0, "wingo")
	u := uuid.New()

	token, expiresAt, err := j.GenerateToken(u, "+919876543210")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), expiresAt, time.Minute)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, u, claims.UserID)
	assert.Equal(t, "+919876543210", claims.PhoneNumber)
	assert.Equal(t, "wingo", claims.Issuer)
}

func TestJWT_Expired(t *testing.T) {
	j := NewJWTManager("secret", time.Hour, "wingo")
	now := time.Now()
	j.SetClock(func() time.Time { return now })

	token, _, err := j.GenerateToken(uuid.New(), "+919876543210")
	require.NoError(t, err)

	j.SetClock(func() time.Time { return now.Add(2 * time.Hour) })
	_, err = j.ValidateToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestJWT_WrongSecret(t *testing.T) {
	token, _, err := NewJWTManager("secret", 0, "").GenerateToken(uuid.New(), "+919876543210")
	require.NoError(t, err)

	_, err = NewJWTManager("other", 0, "").ValidateToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestJWT_RejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{
		UserID:      uuid.New(),
		PhoneNumber: "+919876543210",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewJWTManager("secret", 0, "").ValidateToken(none)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = NewJWTManager("secret", 0, "").ValidateToken(hs512)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestJWT_RequiresExpiry(t *testing.T) {
	claims := &Claims{UserID: uuid.New(), PhoneNumber: "+919876543210"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWTManager("secret", 0, "").ValidateToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestJWT_Garbage(t *testing.T) {
	_, err := NewJWTManager("secret", 0, "").ValidateToken("not-a-token")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}
