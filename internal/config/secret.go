package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SecretMode says whether the token signing secret outlives the process
type SecretMode string

const (
	// SecretModePinned secrets come from configuration or the secret bucket;
	// tokens stay valid across restarts.
	SecretModePinned SecretMode = "pinned"
	// SecretModeEphemeral secrets are generated at startup; every restart
	// invalidates all previously issued tokens.
	SecretModeEphemeral SecretMode = "ephemeral"
)

const ephemeralSecretBytes = 64

type SigningSecret struct {
	Value  string
	Mode   SecretMode
	Source string
}

// SecretFetcher loads a named secret from external storage
type SecretFetcher interface {
	FetchSecret(ctx context.Context, key string) (string, error)
}

// S3SecretFetcher reads secrets stored as objects in an S3-compatible bucket
type S3SecretFetcher struct {
	client *s3.Client
	bucket string
}

// NewS3SecretFetcher builds a fetcher from the secrets.* keys. It returns
// nil when no bucket is configured.
func NewS3SecretFetcher(ctx context.Context, cfg *Config) (*S3SecretFetcher, error) {
	if cfg.Secrets.Bucket == "" {
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Secrets.Region),
	}
	if cfg.Secrets.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Secrets.AccessKey,
			cfg.Secrets.SecretKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to configure secret storage client: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Secrets.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Secrets.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3SecretFetcher{client: client, bucket: cfg.Secrets.Bucket}, nil
}

func (f *S3SecretFetcher) FetchSecret(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch secret %s: %w", key, err)
	}
	defer result.Body.Close()

	secret, err := io.ReadAll(result.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s: %w", key, err)
	}

	return strings.TrimSpace(string(secret)), nil
}

// ResolveSigningSecret picks the token signing secret in order: jwt.secret,
// the jwt.secret_object_key object read through fetcher, then a random
// ephemeral secret. A configured object key that cannot be read is an error
// rather than a silent fall back to ephemeral mode.
func ResolveSigningSecret(ctx context.Context, cfg *Config, fetcher SecretFetcher) (SigningSecret, error) {
	if secret := strings.TrimSpace(cfg.JWT.Secret); secret != "" {
		return SigningSecret{Value: secret, Mode: SecretModePinned, Source: "config"}, nil
	}

	if key := cfg.JWT.SecretObjectKey; key != "" {
		if fetcher == nil {
			return SigningSecret{}, errors.New("jwt.secret_object_key is set but secrets.bucket is not configured")
		}
		secret, err := fetcher.FetchSecret(ctx, key)
		if err != nil {
			return SigningSecret{}, err
		}
		if secret == "" {
			return SigningSecret{}, fmt.Errorf("secret object %s is empty", key)
		}
		return SigningSecret{Value: secret, Mode: SecretModePinned, Source: "object:" + key}, nil
	}

	secret, err := GenerateEphemeralSecret()
	if err != nil {
		return SigningSecret{}, err
	}
	return SigningSecret{Value: secret, Mode: SecretModeEphemeral, Source: "generated"}, nil
}

// GenerateEphemeralSecret returns 64 random bytes, hex encoded
func GenerateEphemeralSecret() (string, error) {
	buf := make([]byte, ephemeralSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate signing secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
