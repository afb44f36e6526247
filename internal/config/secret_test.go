package config

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	secret string
	err    error
	keys   []string
}

func (f *stubFetcher) FetchSecret(ctx context.Context, key string) (string, error) {
	f.keys = append(f.keys, key)
	return f.secret, f.err
}

func TestResolveSigningSecret_Pinned(t *testing.T) {
	cfg := &Config{}
	cfg.JWT.Secret = "configured"
	fetcher := &stubFetcher{secret: "from-bucket"}

	secret, err := ResolveSigningSecret(context.Background(), cfg, fetcher)
	require.NoError(t, err)
	assert.Equal(t, "configured", secret.Value)
	assert.Equal(t, SecretModePinned, secret.Mode)
	assert.Empty(t, fetcher.keys)
}

func TestResolveSigningSecret_FromObject(t *testing.T) {
	cfg := &Config{}
	cfg.JWT.SecretObjectKey = "config/jwt_secret.txt"
	fetcher := &stubFetcher{secret: "from-bucket"}

	secret, err := ResolveSigningSecret(context.Background(), cfg, fetcher)
	require.NoError(t, err)
	assert.Equal(t, "from-bucket", secret.Value)
	assert.Equal(t, SecretModePinned, secret.Mode)
	assert.Equal(t, []string{"config/jwt_secret.txt"}, fetcher.keys)
}

func TestResolveSigningSecret_ObjectErrors(t *testing.T) {
	cfg := &Config{}
	cfg.JWT.SecretObjectKey = "config/jwt_secret.txt"

	_, err := ResolveSigningSecret(context.Background(), cfg, &stubFetcher{err: errors.New("denied")})
	assert.Error(t, err)

	_, err = ResolveSigningSecret(context.Background(), cfg, &stubFetcher{})
	assert.Error(t, err)

	_, err = ResolveSigningSecret(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestResolveSigningSecret_Ephemeral(t *testing.T) {
	a, err := ResolveSigningSecret(context.Background(), &Config{}, nil)
	require.NoError(t, err)
	b, err := ResolveSigningSecret(context.Background(), &Config{}, nil)
	require.NoError(t, err)

	assert.Equal(t, SecretModeEphemeral, a.Mode)
	assert.Len(t, a.Value, 2*ephemeralSecretBytes)
	assert.NotEqual(t, a.Value, b.Value)
}

func TestNewS3SecretFetcher_NoBucket(t *testing.T) {
	f, err := NewS3SecretFetcher(context.Background(), &Config{})
	require.NoError(t, err)
	assert.Nil(t, f)
}
