package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"wingo-backend/internal/auth"
	"wingo-backend/internal/models"
	"wingo-backend/pkg/utils"
)

type contextKey string

const claimsKey contextKey = "claims"

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
}

func NewAuthMiddleware(jwtManager *auth.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// Verify extracts and validates the token from an Authorization header value
func (m *AuthMiddleware) Verify(authHeader string) (*auth.Claims, error) {
	if authHeader == "" {
		return nil, models.ErrUnauthenticated
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return nil, models.ErrUnauthenticated
	}

	return m.jwtManager.ValidateToken(parts[1])
}

// Authenticate is a middleware that validates JWT tokens. Tokens are
// stateless; the user record is not consulted here.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			utils.Error(w, http.StatusUnauthorized, "No token provided")
			return
		}

		claims, err := m.Verify(authHeader)
		if err != nil {
			utils.Error(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

func ContextWithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// GetUserIDFromContext extracts user ID from request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return claims.UserID, true
}
