package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wingo-backend/internal/auth"
	"wingo-backend/internal/models"
	"wingo-backend/internal/timeutil"
)

type UserService struct {
	users  UserStore
	tokens TokenIssuer
	logger *zap.Logger
	clock  timeutil.Clock
}

func NewUserService(users UserStore, tokens TokenIssuer, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		tokens: tokens,
		logger: logger.Named("user"),
		clock:  timeutil.Now,
	}
}

func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

// UpdateProfile changes name and/or address. The phone number has no update path.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *models.UpdateProfileRequest) (*models.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	user, err := s.users.UpdateProfile(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

// SetPassword stores a bcrypt hash enabling phone + password login
func (s *UserService) SetPassword(ctx context.Context, userID uuid.UUID, password string) error {
	if err := models.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.users.SetPasswordHash(ctx, userID, hash)
}

// LoginWithPassword authenticates a user who has set a password. Unknown
// phones, users without a password and wrong passwords all return
// ErrInvalidCredentials.
func (s *UserService) LoginWithPassword(ctx context.Context, phone, password string) (*models.AuthResult, error) {
	if err := models.ValidatePhoneNumber(phone); err != nil {
		return nil, err
	}

	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, models.ErrInvalidCredentials
	}

	user, err = s.users.TouchLastLogin(ctx, user.ID, s.clock())
	if err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("user logged in with password", zap.String("user_id", user.ID.String()))
	return &models.AuthResult{UserID: user.ID, Token: token, ExpiresAt: expiresAt}, nil
}
