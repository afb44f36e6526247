package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const fast2SMSEndpoint = "https://www.fast2sms.com/dev/bulkV2"

// Fast2SMSService implements SMSProvider for Fast2SMS (India) on the quick route
type Fast2SMSService struct {
	APIKey   string
	Endpoint string
	TTL      time.Duration
	client   *http.Client
}

func NewFast2SMSService(apiKey string, ttl time.Duration) *Fast2SMSService {
	return &Fast2SMSService{
		APIKey:   apiKey,
		Endpoint: fast2SMSEndpoint,
		TTL:      ttl,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type fast2SMSResponse struct {
	Return  bool            `json:"return"`
	Message json.RawMessage `json:"message"`
}

func (s *Fast2SMSService) SendOTP(ctx context.Context, phone, otp string) error {
	q := url.Values{}
	q.Set("authorization", s.APIKey)
	q.Set("route", "q")
	q.Set("message", OTPMessage(otp, s.TTL))
	q.Set("language", "english")
	q.Set("flash", "0")
	q.Set("numbers", localNumber(phone))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create SMS request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("SMS API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp fast2SMSResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("invalid SMS API response: %w", err)
	}
	if !apiResp.Return {
		return fmt.Errorf("SMS API error: %s", string(apiResp.Message))
	}
	return nil
}

// localNumber strips the +91 country prefix Fast2SMS does not accept
func localNumber(phone string) string {
	phone = strings.TrimPrefix(phone, "+")
	if len(phone) == 12 && strings.HasPrefix(phone, "91") {
		return phone[2:]
	}
	return phone
}
