package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultConfigFile is read when present; every key also has a default and
// can be overridden from the environment (server.port -> SERVER_PORT).
const DefaultConfigFile = "configs/config.yaml"

type Config struct {
	Server struct {
		Port                   int      `mapstructure:"port"`
		CorsAllowedOrigins     []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods     []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders     []string `mapstructure:"cors_allowed_headers"`
		ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds"`
	} `mapstructure:"server"`

	Database struct {
		URL      string `mapstructure:"url"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
		SecretObjectKey string `mapstructure:"secret_object_key"`
	} `mapstructure:"jwt"`

	OTP struct {
		TTLSeconds           int    `mapstructure:"ttl_seconds"`
		MaxAttempts          int    `mapstructure:"max_attempts"`
		Store                string `mapstructure:"store"`
		SweepIntervalSeconds int    `mapstructure:"sweep_interval_seconds"`
	} `mapstructure:"otp"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Razorpay struct {
		KeyID         string `mapstructure:"key_id"`
		KeySecret     string `mapstructure:"key_secret"`
		WebhookSecret string `mapstructure:"webhook_secret"`
	} `mapstructure:"razorpay"`

	SMS struct {
		Provider         string `mapstructure:"provider"`
		Fast2SMSAPIKey   string `mapstructure:"fast2sms_api_key"`
		TwilioAccountSID string `mapstructure:"twilio_account_sid"`
		TwilioAuthToken  string `mapstructure:"twilio_auth_token"`
		TwilioFrom       string `mapstructure:"twilio_from"`
		AiSensyAPIKey    string `mapstructure:"aisensy_api_key"`
		WhatsAppCampaign string `mapstructure:"whatsapp_campaign"`
		// Fallback names the SMS provider used when WhatsApp delivery fails
		Fallback string `mapstructure:"fallback"`
	} `mapstructure:"sms"`

	Secrets struct {
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		Bucket    string `mapstructure:"bucket"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"secrets"`

	Log struct {
		Environment string `mapstructure:"environment"`
		Level       string `mapstructure:"level"`
	} `mapstructure:"log"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
}

const (
	OTPStoreMemory = "memory"
	OTPStoreRedis  = "redis"

	SMSProviderMock     = "mock"
	SMSProviderFast2SMS = "fast2sms"
	SMSProviderTwilio   = "twilio"
	SMSProviderWhatsApp = "whatsapp"
)

// Load reads configuration from .env, the config file at path and the environment
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()
	return LoadFile(path)
}

// LoadFile reads configuration from path (which may be missing) and the environment
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	bindAliases(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "wingo")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "wingo-backend")
	v.SetDefault("jwt.secret_object_key", "")

	v.SetDefault("otp.ttl_seconds", 300)
	v.SetDefault("otp.max_attempts", 5)
	v.SetDefault("otp.store", OTPStoreMemory)
	v.SetDefault("otp.sweep_interval_seconds", 60)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("razorpay.key_id", "")
	v.SetDefault("razorpay.key_secret", "")
	v.SetDefault("razorpay.webhook_secret", "")

	v.SetDefault("sms.provider", SMSProviderMock)
	v.SetDefault("sms.fast2sms_api_key", "")
	v.SetDefault("sms.twilio_account_sid", "")
	v.SetDefault("sms.twilio_auth_token", "")
	v.SetDefault("sms.twilio_from", "")
	v.SetDefault("sms.aisensy_api_key", "")
	v.SetDefault("sms.whatsapp_campaign", "")
	v.SetDefault("sms.fallback", "")

	v.SetDefault("secrets.endpoint", "")
	v.SetDefault("secrets.region", "auto")
	v.SetDefault("secrets.bucket", "")
	v.SetDefault("secrets.access_key", "")
	v.SetDefault("secrets.secret_key", "")

	v.SetDefault("log.environment", "production")
	v.SetDefault("log.level", "info")

	v.SetDefault("metrics.enabled", true)
}

// bindAliases accepts the short variable names used by existing deployments
func bindAliases(v *viper.Viper) {
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("database.host", "DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.user", "DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("database.name", "DATABASE_NAME", "DB_NAME")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("log.environment", "LOG_ENVIRONMENT", "APP_ENV")
}

// Validate checks value ranges and enum keys
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.JWT.ExpirationHours <= 0 {
		return fmt.Errorf("jwt.expiration_hours must be positive")
	}
	if c.OTP.TTLSeconds <= 0 {
		return fmt.Errorf("otp.ttl_seconds must be positive")
	}
	if c.OTP.MaxAttempts < 0 {
		return fmt.Errorf("otp.max_attempts cannot be negative")
	}

	switch c.OTP.Store {
	case OTPStoreMemory:
	case OTPStoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("otp.store=redis requires redis.addr")
		}
	default:
		return fmt.Errorf("unknown otp.store %q", c.OTP.Store)
	}

	if err := c.validateSMSProvider(c.SMS.Provider); err != nil {
		return err
	}
	if c.SMS.Provider == SMSProviderWhatsApp {
		if c.SMS.AiSensyAPIKey == "" || c.SMS.WhatsAppCampaign == "" {
			return fmt.Errorf("sms.provider=whatsapp requires sms.aisensy_api_key and sms.whatsapp_campaign")
		}
		switch c.SMS.Fallback {
		case "", SMSProviderMock:
		case SMSProviderFast2SMS, SMSProviderTwilio:
			if err := c.validateSMSProvider(c.SMS.Fallback); err != nil {
				return err
			}
		default:
			return fmt.Errorf("sms.fallback must be fast2sms, twilio or mock, got %q", c.SMS.Fallback)
		}
	}

	return nil
}

func (c *Config) validateSMSProvider(provider string) error {
	switch provider {
	case SMSProviderMock, SMSProviderWhatsApp:
	case SMSProviderFast2SMS:
		if c.SMS.Fast2SMSAPIKey == "" {
			return fmt.Errorf("sms.provider=fast2sms requires sms.fast2sms_api_key")
		}
	case SMSProviderTwilio:
		if c.SMS.TwilioAccountSID == "" || c.SMS.TwilioAuthToken == "" || c.SMS.TwilioFrom == "" {
			return fmt.Errorf("sms.provider=twilio requires account sid, auth token and from number")
		}
	default:
		return fmt.Errorf("unknown sms.provider %q", provider)
	}
	return nil
}

// DatabaseDSN returns database.url when set, otherwise a DSN built from the parts
func (c *Config) DatabaseDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Database.User, c.Database.Password),
		Host:   fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:   c.Database.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.Database.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpirationHours) * time.Hour
}

func (c *Config) OTPTTL() time.Duration {
	return time.Duration(c.OTP.TTLSeconds) * time.Second
}

func (c *Config) OTPSweepInterval() time.Duration {
	return time.Duration(c.OTP.SweepIntervalSeconds) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// RazorpayEnabled reports whether gateway credentials are configured
func (c *Config) RazorpayEnabled() bool {
	return c.Razorpay.KeyID != "" && c.Razorpay.KeySecret != ""
}
