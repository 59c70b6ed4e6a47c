package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/munai7/TrustGate/internal/auth"
	"github.com/munai7/TrustGate/internal/background"
	"github.com/munai7/TrustGate/internal/config"
	"github.com/munai7/TrustGate/internal/database"
	"github.com/munai7/TrustGate/internal/geo"
	"github.com/munai7/TrustGate/internal/handlers"
	"github.com/munai7/TrustGate/internal/metrics"
	middlewareCustom "github.com/munai7/TrustGate/internal/middleware"
	"github.com/munai7/TrustGate/internal/models"
	"github.com/munai7/TrustGate/internal/notify"
	"github.com/munai7/TrustGate/internal/repositories"
	"github.com/munai7/TrustGate/internal/risk"
	"github.com/munai7/TrustGate/internal/routes"
	"github.com/munai7/TrustGate/internal/services"
	"github.com/munai7/TrustGate/internal/ttlstore"
	pkgauth "github.com/munai7/TrustGate/pkg/auth"
	pkghttp "github.com/munai7/TrustGate/pkg/http"
	pkglogger "github.com/munai7/TrustGate/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Initialize database
	db, err := database.NewConnection(startupCtx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(startupCtx); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// TTL store: Redis when configured, in-memory otherwise
	var (
		store     ttlstore.Store
		redisPool background.PoolStatser
	)
	redisClient, err := ttlstore.NewClient(startupCtx, cfg.Redis)
	if err != nil {
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		store = ttlstore.NewRedisStore(redisClient.Client)
		redisPool = redisClient.Client
		logger.Info("using redis ttl store")
	} else {
		store = ttlstore.NewMemoryStore(time.Now)
		logger.Warn("REDIS_URL not set, using in-memory ttl store")
	}

	m := metrics.New()
	auditLogger := pkglogger.NewAuditLogger(logger, cfg.Server.Env)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	attemptRepo := repositories.NewAttemptRepository(db)
	alertRepo := repositories.NewAlertRepository(db)

	// Alert sinks beyond the durable table are optional
	var publishers []services.AlertPublisher
	var kafkaPublisher *notify.KafkaPublisher
	if len(cfg.Alerts.KafkaBrokers) > 0 {
		kafkaPublisher, err = notify.NewKafkaPublisher(notify.KafkaConfig{
			Brokers:         cfg.Alerts.KafkaBrokers,
			Topic:           cfg.Alerts.KafkaTopic,
			Retries:         3,
			DeliveryTimeout: 10 * time.Second,
		}, logger)
		if err != nil {
			logger.Error("failed to create kafka publisher", slog.Any("error", err))
			os.Exit(1)
		}
		publishers = append(publishers, kafkaPublisher)
	}
	if cfg.Alerts.SESRegion != "" && len(cfg.Alerts.SESRecipients) > 0 {
		sesNotifier, err := notify.NewSESNotifier(startupCtx, cfg.Alerts.SESRegion, cfg.Alerts.SESFromAddress, cfg.Alerts.SESRecipients, logger)
		if err != nil {
			logger.Error("failed to create ses notifier", slog.Any("error", err))
			os.Exit(1)
		}
		publishers = append(publishers, sesNotifier)
	}

	var countryResolver services.CountryResolver
	if cfg.GeoIP.CountryDBPath != "" {
		resolver, err := geo.Open(cfg.GeoIP.CountryDBPath)
		if err != nil {
			logger.Error("failed to open geoip database", slog.Any("error", err))
			os.Exit(1)
		}
		defer resolver.Close() //nolint:errcheck
		countryResolver = resolver
	}

	classifier, err := risk.Train(risk.DefaultTrainingSet())
	if err != nil {
		logger.Error("failed to train risk classifier", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay: cfg.Auth.FailureDelay,
		Jitter:    cfg.Auth.FailureJitter,
	})
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry, cfg.Auth.Issuer)

	credentialService := services.NewCredentialService(userRepo, timingDelay, pkgauth.DefaultBcryptCost, logger)
	blockService := services.NewBlockService(store, cfg.Risk.BlockDurations, cfg.Risk.FallbackBlockDuration, logger)
	rateLimitService := services.NewRateLimitService(store, services.RateLimitConfig{
		Max:    cfg.Risk.RateLimitMax,
		Window: cfg.Risk.RateLimitWindow,
		Grace:  cfg.Risk.RateLimitGrace,
	}, logger)
	challengeService := services.NewChallengeService(store, cfg.Risk.PushTTL, logger)
	alertService := services.NewAlertService(alertRepo, m, logger, publishers...).WithEnv(cfg.Server.Env)
	reportService := services.NewAttemptReportService(store, alertService, cfg.Risk.AttemptReportTTL, logger)

	authService := services.NewAuthService(services.AuthServiceDeps{
		Blocks:         blockService,
		Limiter:        rateLimitService,
		Challenges:     challengeService,
		Alerts:         alertService,
		Verifier:       credentialService,
		Issuer:         tokenManager,
		Ledger:         attemptRepo,
		Engine:         risk.NewEngine(classifier),
		Geo:            countryResolver,
		Audit:          auditLogger,
		Recorder:       m,
		Logger:         logger,
		BlockThreshold: cfg.Risk.BlockThreshold,
	})

	if err := seedUsers(startupCtx, credentialService, cfg.Auth, logger); err != nil {
		logger.Error("failed to seed users", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize handlers
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	h := routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService, challengeService, ipConfig, logger),
		Admin:    handlers.NewAdminHandler(blockService, alertService, attemptRepo, auditLogger, logger),
		Attempts: handlers.NewAttemptReportHandler(reportService, logger),
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"ttl_store": store,
			"database":  handlers.PingFunc(db.HealthCheck),
		}, logger),
		Metrics: m.Handler(),
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, cfg.Server.Env, ipConfig))
	router.Use(middlewareCustom.RequestMetrics(m))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, h, tokenManager, ipConfig)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start janitor
	janitor := background.NewJanitor(challengeService, m, redisPool, logger, cfg.Background.JanitorInterval).WithDB(db)
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	defer janitorCancel()

	go janitor.Start(janitorCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	janitorCancel()
	janitor.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(shutdownCtx); err != nil {
			logger.Warn("kafka publisher close error", slog.Any("error", err))
		}
	}

	logger.Info("server stopped gracefully")
}

// seedUsers installs the demo accounts and the bootstrap admin when configured
func seedUsers(ctx context.Context, creds *services.CredentialService, cfg config.AuthConfig, logger *slog.Logger) error {
	var users []services.SeedUser
	if cfg.SeedDemoUsers {
		users = append(users, services.DemoUsers()...)
	}
	if cfg.AdminUsername != "" {
		users = append(users, services.SeedUser{
			Username: cfg.AdminUsername,
			Password: cfg.AdminPassword,
			Role:     models.RoleAdmin,
		})
	}
	if len(users) == 0 {
		logger.Info("no users to seed")
		return nil
	}

	if err := creds.Seed(ctx, users); err != nil {
		return err
	}
	logger.Info("users seeded", slog.Int("count", len(users)))
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
