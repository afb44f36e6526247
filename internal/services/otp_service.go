package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"wingo-backend/internal/metrics"
	"wingo-backend/internal/models"
	"wingo-backend/internal/otpstore"
	"wingo-backend/internal/sms"
	"wingo-backend/internal/timeutil"
)

// DefaultDispatchTimeout bounds a single OTP delivery attempt
const DefaultDispatchTimeout = 15 * time.Second

// OTPService runs phone-number login: issuing codes, handing them to the
// dispatch channel and exchanging a valid code for a session token.
type OTPService struct {
	store  otpstore.Store
	users  UserStore
	tokens TokenIssuer
	sender sms.SMSProvider
	logger *zap.Logger
	clock  timeutil.Clock

	dispatchTimeout time.Duration
	dispatches      sync.WaitGroup
}

func NewOTPService(
	store otpstore.Store,
	users UserStore,
	tokens TokenIssuer,
	sender sms.SMSProvider,
	logger *zap.Logger,
) *OTPService {
	return &OTPService{
		store:           store,
		users:           users,
		tokens:          tokens,
		sender:          sender,
		logger:          logger.Named("otp"),
		clock:           timeutil.Now,
		dispatchTimeout: DefaultDispatchTimeout,
	}
}

// SetClock overrides the time source used for lastLogin
func (s *OTPService) SetClock(clock timeutil.Clock) {
	s.clock = clock
}

// SendOTP validates the phone, issues a new challenge and dispatches the
// code in the background. Delivery failures are logged, never returned.
func (s *OTPService) SendOTP(ctx context.Context, phone string) error {
	if err := models.ValidatePhoneNumber(phone); err != nil {
		return err
	}

	code, err := s.store.Issue(ctx, phone)
	if err != nil {
		return fmt.Errorf("failed to issue OTP: %w", err)
	}
	metrics.OTPIssuedTotal.Inc()

	s.dispatches.Add(1)
	go s.dispatch(phone, code)

	return nil
}

func (s *OTPService) dispatch(phone, code string) {
	defer s.dispatches.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
	defer cancel()

	if err := s.sender.SendOTP(ctx, phone, code); err != nil {
		metrics.OTPDispatchFailuresTotal.Inc()
		s.logger.Error("otp dispatch failed", zap.String("phone", phone), zap.Error(err))
	}
}

// Wait blocks until every in-flight dispatch has finished
func (s *OTPService) Wait() {
	s.dispatches.Wait()
}

// VerifyOTP consumes the challenge for phone and logs the user in, creating
// the user on first verification. The challenge is gone after a successful
// consume even if a later step fails.
func (s *OTPService) VerifyOTP(ctx context.Context, phone, code string) (*models.AuthResult, error) {
	if err := models.ValidatePhoneNumber(phone); err != nil {
		metrics.OTPVerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, models.ErrInvalidOrExpiredOTP
	}

	if err := s.store.Consume(ctx, phone, code); err != nil {
		if errors.Is(err, models.ErrInvalidOrExpiredOTP) {
			metrics.OTPVerificationsTotal.WithLabelValues("invalid").Inc()
			return nil, err
		}
		metrics.OTPVerificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to check OTP: %w", err)
	}

	user, isNewUser, err := s.loginByPhone(ctx, phone)
	if err != nil {
		metrics.OTPVerificationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.PhoneNumber)
	if err != nil {
		metrics.OTPVerificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	metrics.OTPVerificationsTotal.WithLabelValues("success").Inc()
	if isNewUser {
		metrics.UsersCreatedTotal.Inc()
	}
	s.logger.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.Bool("new_user", isNewUser))

	return &models.AuthResult{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: expiresAt,
		IsNewUser: isNewUser,
	}, nil
}

// loginByPhone finds or creates the user for phone. isNewUser reports
// whether this call created the record.
func (s *OTPService) loginByPhone(ctx context.Context, phone string) (*models.User, bool, error) {
	now := s.clock()

	user, err := s.users.GetByPhone(ctx, phone)
	switch {
	case err == nil:
		user, err = s.users.TouchLastLogin(ctx, user.ID, now)
		if err != nil {
			return nil, false, fmt.Errorf("failed to update last login: %w", err)
		}
		return user, false, nil
	case !errors.Is(err, models.ErrNotFound):
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	user = &models.User{
		PhoneNumber: phone,
		IsVerified:  true,
		LastLogin:   &now,
	}
	err = s.users.Create(ctx, user)
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, models.ErrPhoneTaken) {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	// Another request created the user between lookup and insert
	existing, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}
	existing, err = s.users.TouchLastLogin(ctx, existing.ID, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to update last login: %w", err)
	}
	return existing, false, nil
}
