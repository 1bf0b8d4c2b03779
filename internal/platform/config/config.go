package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all runtime configuration. FromEnv builds it from
// environment variables so main stays lean.
type Config struct {
	Addr          string
	JWTSigningKey string

	Auth         AuthConfig
	Provider     ProviderConfig
	Verification VerificationConfig
	Redis        RedisConfig
	Postgres     PostgresConfig
	Kafka        KafkaConfig
}

// AuthConfig identifies the API client allowed to exchange credentials for
// access tokens. Only the bcrypt hash of the secret is configured.
type AuthConfig struct {
	ClientID         string
	ClientSecretHash string
	TokenTTL         time.Duration
}

// ProviderConfig holds the external identity-verification provider settings.
type ProviderConfig struct {
	BaseURL       string
	APIKey        string
	WorkflowID    string
	WebhookSecret string
	CallbackURL   string
	HTTPTimeout   time.Duration
}

// VerificationConfig holds session lifecycle and resilience policy knobs.
type VerificationConfig struct {
	PollInterval       time.Duration
	SessionTimeout     time.Duration
	MaxRetries         int
	MinComplianceScore int
	// NotFoundThreshold is how many consecutive provider 404s are tolerated
	// before the session is treated as expired. The provider is eventually
	// consistent; fresh sessions can 404 for several seconds.
	NotFoundThreshold int
	// ErrorThreshold is how many consecutive non-404 provider failures are
	// tolerated before the session fails with a connectivity error.
	ErrorThreshold int
	BreakerThreshold    int
	BreakerCooldown     time.Duration
	SuspiciousThreshold int
	// CompletionDelay is a short user-visible pause between the terminal
	// provider status and the completion callback.
	CompletionDelay time.Duration
}

// RedisConfig holds Redis connection settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig holds the audit database settings. An empty DSN disables it.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig holds the audit topic settings. Empty brokers disable Kafka.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds the Config from environment variables, applying defaults
// suitable for local development.
func FromEnv() Config {
	return Config{
		Addr:          envString("KYC_GATEWAY_ADDR", ":8080"),
		JWTSigningKey: envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Auth: AuthConfig{
			ClientID:         envString("API_CLIENT_ID", "registration-backend"),
			ClientSecretHash: os.Getenv("API_CLIENT_SECRET_HASH"),
			TokenTTL:         envDuration("API_TOKEN_TTL", time.Hour),
		},
		Provider: ProviderConfig{
			BaseURL:       envString("PROVIDER_BASE_URL", "https://verification.example.com"),
			APIKey:        os.Getenv("PROVIDER_API_KEY"),
			WorkflowID:    envString("PROVIDER_WORKFLOW_ID", "doctor-onboarding"),
			WebhookSecret: os.Getenv("PROVIDER_WEBHOOK_SECRET"),
			CallbackURL:   os.Getenv("PROVIDER_CALLBACK_URL"),
			HTTPTimeout:   envDuration("PROVIDER_HTTP_TIMEOUT", 12*time.Second),
		},
		Verification: VerificationConfig{
			PollInterval:        envDuration("VERIFICATION_POLL_INTERVAL", 3*time.Second),
			SessionTimeout:      envDuration("VERIFICATION_SESSION_TIMEOUT", 5*time.Minute),
			MaxRetries:          envInt("VERIFICATION_MAX_RETRIES", 3),
			MinComplianceScore:  envInt("VERIFICATION_MIN_SCORE", 80),
			NotFoundThreshold:   envInt("VERIFICATION_NOT_FOUND_THRESHOLD", 10),
			ErrorThreshold:      envInt("VERIFICATION_ERROR_THRESHOLD", 3),
			BreakerThreshold:    envInt("VERIFICATION_BREAKER_THRESHOLD", 5),
			BreakerCooldown:     envDuration("VERIFICATION_BREAKER_COOLDOWN", 30*time.Second),
			SuspiciousThreshold: envInt("VERIFICATION_SUSPICIOUS_THRESHOLD", 5),
			CompletionDelay:     envDuration("VERIFICATION_COMPLETION_DELAY", 1500*time.Millisecond),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("AUDIT_POSTGRES_DSN"),
		},
		Kafka: KafkaConfig{
			Brokers: envStrings("AUDIT_KAFKA_BROKERS"),
			Topic:   envString("AUDIT_KAFKA_TOPIC", "kyc-gateway.audit"),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envStrings(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
