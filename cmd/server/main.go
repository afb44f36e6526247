package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"wingo-backend/internal/auth"
	"wingo-backend/internal/cache"
	"wingo-backend/internal/config"
	"wingo-backend/internal/database"
	"wingo-backend/internal/db"
	h "wingo-backend/internal/http"
	"wingo-backend/internal/handlers"
	"wingo-backend/internal/health"
	"wingo-backend/internal/logger"
	"wingo-backend/internal/middleware"
	"wingo-backend/internal/otpstore"
	"wingo-backend/internal/repositories"
	"wingo-backend/internal/services"
	"wingo-backend/internal/sms"
	"wingo-backend/internal/tracking"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigFile, "path to the YAML config file")
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Environment, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log, *migrateOnly); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger, migrateOnly bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := db.Connect(ctx, cfg.DatabaseDSN())
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info("connected to database")

	migrator := database.NewMigrator(pool, database.Migrations(), log)
	if err := migrator.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if migrateOnly {
		log.Info("migrations applied")
		return nil
	}

	// Token signing secret
	secret, err := resolveSigningSecret(ctx, cfg)
	if err != nil {
		return err
	}
	if secret.Mode == config.SecretModeEphemeral {
		log.Warn("no signing secret configured; using an ephemeral secret, tokens will not survive a restart")
	} else {
		log.Info("signing secret loaded", zap.String("source", secret.Source))
	}
	jwtManager := auth.NewJWTManager(secret.Value, cfg.TokenTTL(), cfg.JWT.Issuer)

	checker := health.NewHealthChecker()
	checker.Register("database", pool.Ping)

	// OTP store
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewClient(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer redisClient.Close()
		checker.Register("redis", cache.PingCheck(redisClient))
		log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	}

	collector := services.NewMetricsCollector(15*time.Second, log).
		WithPool(func() services.PoolStats {
			s := pool.Stat()
			return services.PoolStats{Acquired: s.AcquiredConns(), Idle: s.IdleConns(), Total: s.TotalConns()}
		})

	storeOpts := otpstore.Options{TTL: cfg.OTPTTL(), MaxAttempts: cfg.OTP.MaxAttempts}
	var otpStore otpstore.Store
	switch cfg.OTP.Store {
	case config.OTPStoreRedis:
		otpStore = otpstore.NewRedisStore(redisClient, storeOpts)
	default:
		memStore := otpstore.NewMemoryStore(storeOpts)
		memStore.StartSweeper(cfg.OTPSweepInterval())
		defer memStore.Stop()
		collector.WithPendingOTP(memStore.Len)
		otpStore = memStore
	}
	log.Info("otp store ready", zap.String("store", cfg.OTP.Store))

	if cfg.Metrics.Enabled {
		collector.Start()
		defer collector.Stop()
	}

	sender, err := newSMSProvider(cfg, log)
	if err != nil {
		return err
	}

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	orderRepo := repositories.NewOrderRepository(pool)

	// Services
	hub := tracking.NewHub()
	defer hub.Close()

	gateway := services.NewRazorpayService(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret, log)
	if !gateway.Enabled() {
		log.Warn("razorpay credentials not configured; online payments disabled")
	}

	otpService := services.NewOTPService(otpStore, userRepo, jwtManager, sender, log)
	defer otpService.Wait()
	userService := services.NewUserService(userRepo, jwtManager, log)
	orderService := services.NewOrderService(orderRepo, gateway, hub, log)

	// HTTP
	router := h.NewRouter(
		handlers.NewAuthHandler(otpService, userService, log),
		handlers.NewUserHandler(userService, log),
		handlers.NewOrderHandler(orderService, services.NewReceiptService(), hub, log),
		handlers.NewRazorpayHandler(gateway, orderService, log),
		handlers.NewHealthHandler(checker),
		middleware.NewAuthMiddleware(jwtManager),
		log,
		h.RouterOptions{MetricsEnabled: cfg.Metrics.Enabled},
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           middleware.NewCORS(cfg)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	// Websocket streams are hijacked and not tracked by Shutdown
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func resolveSigningSecret(ctx context.Context, cfg *config.Config) (config.SigningSecret, error) {
	s3Fetcher, err := config.NewS3SecretFetcher(ctx, cfg)
	if err != nil {
		return config.SigningSecret{}, err
	}
	// A nil *S3SecretFetcher must not become a non-nil interface
	var fetcher config.SecretFetcher
	if s3Fetcher != nil {
		fetcher = s3Fetcher
	}
	return config.ResolveSigningSecret(ctx, cfg, fetcher)
}

func newSMSProvider(cfg *config.Config, log *zap.Logger) (sms.SMSProvider, error) {
	if cfg.SMS.Provider == config.SMSProviderWhatsApp {
		whatsapp := sms.NewAiSensyService(cfg.SMS.AiSensyAPIKey, cfg.SMS.WhatsAppCampaign)
		if cfg.SMS.Fallback == "" {
			return whatsapp, nil
		}
		fallback, err := smsChannel(cfg, cfg.SMS.Fallback, log)
		if err != nil {
			return nil, err
		}
		log.Info("whatsapp delivery with sms fallback", zap.String("fallback", cfg.SMS.Fallback))
		return sms.NewFallbackProvider(whatsapp, fallback, log), nil
	}
	return smsChannel(cfg, cfg.SMS.Provider, log)
}

func smsChannel(cfg *config.Config, provider string, log *zap.Logger) (sms.SMSProvider, error) {
	switch provider {
	case config.SMSProviderFast2SMS:
		return sms.NewFast2SMSService(cfg.SMS.Fast2SMSAPIKey, cfg.OTPTTL()), nil
	case config.SMSProviderTwilio:
		return sms.NewTwilioService(cfg.SMS.TwilioAccountSID, cfg.SMS.TwilioAuthToken, cfg.SMS.TwilioFrom, cfg.OTPTTL())
	default:
		log.Warn("using mock sms provider; codes are written to the log")
		return sms.NewMockSMSService(log, cfg.OTPTTL()), nil
	}
}
