// Package otpstore keeps pending one-time passcode challenges, at most one per
// phone number. A challenge is single use: Issue overwrites any earlier
// challenge for the phone and a successful Consume removes it.
package otpstore

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"wingo-backend/internal/timeutil"
)

const (
	CodeLength         = 6
	DefaultTTL         = 5 * time.Minute
	DefaultMaxAttempts = 5
)

// Store holds pending OTP challenges keyed by phone number.
//
// Consume returns models.ErrInvalidOrExpiredOTP when there is no challenge,
// the code does not match, or the challenge has expired. Among concurrent
// Consume calls for the same challenge at most one succeeds.
type Store interface {
	Issue(ctx context.Context, phone string) (string, error)
	Consume(ctx context.Context, phone, code string) error
}

// Options configure a Store. MaxAttempts is the number of wrong codes after
// which a challenge is discarded; 0 means unlimited.
type Options struct {
	TTL         time.Duration
	MaxAttempts int
	Clock       timeutil.Clock
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.MaxAttempts < 0 {
		o.MaxAttempts = 0
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

var codeRange = big.NewInt(900000)

// GenerateCode returns a uniformly random code in 100000-999999
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeRange)
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func codesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
