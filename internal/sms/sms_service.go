package sms

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SMSProvider delivers OTP codes to a phone number
type SMSProvider interface {
	SendOTP(ctx context.Context, phone, otp string) error
}

// OTPMessage is the text sent with every code
func OTPMessage(otp string, ttl time.Duration) string {
	return fmt.Sprintf("Your WinGo verification code is %s. Valid for %d minutes. Do not share this code with anyone.",
		otp, int(ttl.Minutes()))
}

// MockSMSService logs codes instead of sending them and remembers the last
// code per phone. Intended for development and tests.
type MockSMSService struct {
	logger *zap.Logger
	ttl    time.Duration

	mu   sync.Mutex
	sent map[string]string
	err  error
}

func NewMockSMSService(logger *zap.Logger, ttl time.Duration) *MockSMSService {
	return &MockSMSService{
		logger: logger.Named("sms.mock"),
		ttl:    ttl,
		sent:   make(map[string]string),
	}
}

func (s *MockSMSService) SendOTP(ctx context.Context, phone, otp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.sent[phone] = otp
	s.logger.Info("otp message",
		zap.String("phone", phone),
		zap.String("message", OTPMessage(otp, s.ttl)))
	return nil
}

// LastCode returns the most recent code sent to phone
func (s *MockSMSService) LastCode(phone string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.sent[phone]
	return code, ok
}

// FailWith makes subsequent sends return err; nil restores delivery
func (s *MockSMSService) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
