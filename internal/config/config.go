package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/munai7/TrustGate/internal/models"
)

type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Risk       RiskConfig
	Alerts     AlertsConfig
	GeoIP      GeoIPConfig
	Background BackgroundConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// RedisConfig configures the TTL store. An empty URL selects the in-memory
// store, which is only allowed outside production.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type AuthConfig struct {
	JWTSecret     string
	TokenExpiry   time.Duration
	Issuer        string
	SeedDemoUsers bool
	// AdminUsername/AdminPassword bootstrap one admin account at startup when both are set
	AdminUsername string
	AdminPassword string
	FailureDelay  time.Duration
	FailureJitter time.Duration
}

// BlockDurations is the severity tier table for temporary blocks
type BlockDurations struct {
	Low      time.Duration
	Medium   time.Duration
	High     time.Duration
	Critical time.Duration
}

// For returns the configured duration for label. Labels without a tier
// (normal, unknown) report false.
func (b BlockDurations) For(label models.RiskLabel) (time.Duration, bool) {
	var d time.Duration
	switch label {
	case models.RiskLow:
		d = b.Low
	case models.RiskMedium:
		d = b.Medium
	case models.RiskHigh:
		d = b.High
	case models.RiskCritical:
		d = b.Critical
	}
	return d, d > 0
}

type RiskConfig struct {
	RateLimitMax          int
	RateLimitWindow       time.Duration
	RateLimitGrace        time.Duration
	BlockThreshold        int
	PushTTL               time.Duration
	AttemptReportTTL      time.Duration
	BlockDurations        BlockDurations
	FallbackBlockDuration time.Duration
}

type AlertsConfig struct {
	KafkaBrokers   []string
	KafkaTopic     string
	SESRegion      string
	SESFromAddress string
	SESRecipients  []string
}

type GeoIPConfig struct {
	CountryDBPath string
}

type BackgroundConfig struct {
	JanitorInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "trustgate"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:     jwtSecret,
			TokenExpiry:   getEnvAsDuration("TOKEN_EXPIRY", time.Hour),
			Issuer:        getEnv("TOKEN_ISSUER", "trustgate"),
			SeedDemoUsers: getEnvAsBool("SEED_DEMO_USERS", false),
			AdminUsername: getEnv("ADMIN_USERNAME", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
			FailureDelay:  getEnvAsDuration("AUTH_FAILURE_DELAY", 250*time.Millisecond),
			FailureJitter: getEnvAsDuration("AUTH_FAILURE_JITTER", 50*time.Millisecond),
		},
		Risk: RiskConfig{
			RateLimitMax:     getEnvAsInt("RATE_LIMIT_MAX", 10),
			RateLimitWindow:  getEnvAsDuration("RATE_LIMIT_WINDOW", 60*time.Second),
			RateLimitGrace:   getEnvAsDuration("RATE_LIMIT_GRACE", 2*time.Second),
			BlockThreshold:   getEnvAsInt("BLOCK_THRESHOLD", 5),
			PushTTL:          getEnvAsDuration("PUSH_TTL", 180*time.Second),
			AttemptReportTTL: getEnvAsDuration("ATTEMPT_REPORT_TTL", 600*time.Second),
			BlockDurations: BlockDurations{
				Low:      getEnvAsDuration("BLOCK_DURATION_LOW", 300*time.Second),
				Medium:   getEnvAsDuration("BLOCK_DURATION_MEDIUM", 600*time.Second),
				High:     getEnvAsDuration("BLOCK_DURATION_HIGH", 86400*time.Second),
				Critical: getEnvAsDuration("BLOCK_DURATION_CRITICAL", 604800*time.Second),
			},
			FallbackBlockDuration: getEnvAsDuration("BLOCK_DURATION_FALLBACK", time.Hour),
		},
		Alerts: AlertsConfig{
			KafkaBrokers:   getEnvAsList("ALERT_KAFKA_BROKERS"),
			KafkaTopic:     getEnv("ALERT_KAFKA_TOPIC", "soc.alerts"),
			SESRegion:      getEnv("ALERT_SES_REGION", ""),
			SESFromAddress: getEnv("ALERT_SES_FROM", ""),
			SESRecipients:  getEnvAsList("ALERT_SES_RECIPIENTS"),
		},
		GeoIP: GeoIPConfig{
			CountryDBPath: getEnv("GEOIP_COUNTRY_DB", ""),
		},
		Background: BackgroundConfig{
			JanitorInterval: getEnvAsDuration("JANITOR_INTERVAL", time.Minute),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if env == "production" && cfg.Redis.URL == "" {
		return nil, fmt.Errorf("REDIS_URL is required in production")
	}

	if (cfg.Auth.AdminUsername == "") != (cfg.Auth.AdminPassword == "") {
		return nil, fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.Risk.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks thresholds and the block tier table
func (r RiskConfig) Validate() error {
	if r.RateLimitMax <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive")
	}
	if r.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if r.RateLimitGrace < 0 {
		return fmt.Errorf("RATE_LIMIT_GRACE cannot be negative")
	}
	if r.BlockThreshold <= 0 {
		return fmt.Errorf("BLOCK_THRESHOLD must be positive")
	}
	if r.PushTTL <= 0 {
		return fmt.Errorf("PUSH_TTL must be positive")
	}
	if r.AttemptReportTTL <= 0 {
		return fmt.Errorf("ATTEMPT_REPORT_TTL must be positive")
	}
	if r.FallbackBlockDuration <= 0 {
		return fmt.Errorf("BLOCK_DURATION_FALLBACK must be positive")
	}

	tiers := []time.Duration{r.BlockDurations.Low, r.BlockDurations.Medium, r.BlockDurations.High, r.BlockDurations.Critical}
	for i, d := range tiers {
		if d <= 0 {
			return fmt.Errorf("block duration for %s must be positive", models.RiskLabels[i+1])
		}
		if i > 0 && d < tiers[i-1] {
			return fmt.Errorf("block duration for %s is shorter than for %s", models.RiskLabels[i+1], models.RiskLabels[i])
		}
	}

	return nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	// Minimum length based on environment
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	// Check against common weak secrets
	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

// getEnvAsList splits a comma-separated variable, dropping empty items
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		origins := getEnvAsList("ALLOWED_ORIGINS")
		if origins == nil {
			return []string{} // Default to no origins in production
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
