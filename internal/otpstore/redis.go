package otpstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"wingo-backend/internal/models"
)

const keyPrefix = "otp:"

// consumeScript deletes the challenge when the code matches and otherwise
// counts the failed attempt, discarding the challenge once ARGV[2] attempts
// have been made. Returns 1 on success.
var consumeScript = redis.NewScript(`
local code = redis.call('HGET', KEYS[1], 'code')
if not code then
	return 0
end
if code == ARGV[1] then
	redis.call('DEL', KEYS[1])
	return 1
end
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
local max = tonumber(ARGV[2])
if max > 0 and attempts >= max then
	redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisStore shares challenges between server replicas. Expiry is delegated
// to the key TTL and Consume runs as a single script, so a matching code is
// accepted at most once across all replicas.
type RedisStore struct {
	client redis.UniversalClient
	opts   Options
}

func NewRedisStore(client redis.UniversalClient, opts Options) *RedisStore {
	return &RedisStore{client: client, opts: opts.withDefaults()}
}

func challengeKey(phone string) string {
	return keyPrefix + phone
}

func (s *RedisStore) Issue(ctx context.Context, phone string) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}

	key := challengeKey(phone)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "code", code, "attempts", 0)
		pipe.PExpire(ctx, key, s.opts.TTL)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to store OTP: %w", err)
	}

	return code, nil
}

func (s *RedisStore) Consume(ctx context.Context, phone, code string) error {
	ok, err := consumeScript.Run(ctx, s.client, []string{challengeKey(phone)}, code, s.opts.MaxAttempts).Int()
	if err != nil {
		return fmt.Errorf("failed to consume OTP: %w", err)
	}
	if ok != 1 {
		return models.ErrInvalidOrExpiredOTP
	}
	return nil
}
