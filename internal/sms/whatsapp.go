package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const aiSensyEndpoint = "https://backend.aisensy.com/campaign/t1/api/v2"

// AiSensyService delivers codes as a WhatsApp template campaign through AiSensy.
// The campaign template must take the code as its only parameter.
type AiSensyService struct {
	APIKey   string
	Campaign string
	Endpoint string
	client   *http.Client
}

func NewAiSensyService(apiKey, campaign string) *AiSensyService {
	return &AiSensyService{
		APIKey:   apiKey,
		Campaign: campaign,
		Endpoint: aiSensyEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type aiSensyRequest struct {
	APIKey         string   `json:"apiKey"`
	CampaignName   string   `json:"campaignName"`
	Destination    string   `json:"destination"`
	UserName       string   `json:"userName"`
	TemplateParams []string `json:"templateParams"`
}

func (s *AiSensyService) SendOTP(ctx context.Context, phone, otp string) error {
	payload, err := json.Marshal(aiSensyRequest{
		APIKey:         s.APIKey,
		CampaignName:   s.Campaign,
		Destination:    whatsAppNumber(phone),
		UserName:       "Customer",
		TemplateParams: []string{otp},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return fmt.Errorf("AiSensy API error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// whatsAppNumber formats phone as country code plus number with no plus sign
func whatsAppNumber(phone string) string {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	if len(digits) == 10 {
		return "91" + string(digits)
	}
	return string(digits)
}

// FallbackProvider tries WhatsApp first and falls back to SMS when it fails
type FallbackProvider struct {
	primary  SMSProvider
	fallback SMSProvider
	logger   *zap.Logger
}

// NewFallbackProvider returns primary unchanged when fallback is nil
func NewFallbackProvider(primary, fallback SMSProvider, logger *zap.Logger) SMSProvider {
	if fallback == nil {
		return primary
	}
	return &FallbackProvider{
		primary:  primary,
		fallback: fallback,
		logger:   logger.Named("sms.fallback"),
	}
}

func (p *FallbackProvider) SendOTP(ctx context.Context, phone, otp string) error {
	err := p.primary.SendOTP(ctx, phone, otp)
	if err == nil {
		return nil
	}
	p.logger.Warn("primary channel failed, falling back",
		zap.String("phone", phone),
		zap.Error(err))

	if fbErr := p.fallback.SendOTP(ctx, phone, otp); fbErr != nil {
		return fmt.Errorf("all channels failed: %w", fbErr)
	}
	return nil
}
