package sms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioService implements SMSProvider over the Twilio Messages API
type TwilioService struct {
	api  messageCreator
	from string
	ttl  time.Duration
}

func NewTwilioService(accountSID, authToken, from string, ttl time.Duration) (*TwilioService, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioService{api: client.Api, from: from, ttl: ttl}, nil
}

// SendOTP sends the code as a plain SMS. The Twilio client has no context
// support, so ctx is only checked before the request is made.
func (t *TwilioService) SendOTP(ctx context.Context, phone, otp string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(e164(phone))
	params.SetBody(OTPMessage(otp, t.ttl))

	if _, err := t.api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS via Twilio: %w", err)
	}
	return nil
}

func e164(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + phone
}
