package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultDatabaseURL     = "cabinbook.db"
	defaultJWTSecret       = "change-me-jwt-secret"
	defaultJWTIssuer       = "cabinbook"
	defaultJWTTTL          = "24h"
	defaultHoldDuration    = "10m"
	defaultSweepInterval   = "1m"
	defaultSweepEnabled    = "true"
	defaultCacheTTL        = "30s"
	defaultShutdownTimeout = "15s"
	defaultAMQPQueue       = "reservation.events"
	defaultKafkaTopic      = "reservation-events"

	minHoldDuration = time.Minute
	maxHoldDuration = time.Hour
)

const (
	BrokerNone  = "none"
	BrokerAMQP  = "amqp"
	BrokerKafka = "kafka"
	BrokerBoth  = "both"
)

type Config struct {
	AppEnv          string
	HTTPAddr        string
	DatabaseURL     string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	Location        *time.Location

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	HoldDuration  time.Duration
	SweepInterval time.Duration
	SweepEnabled  bool

	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	EventBroker  string
	AMQPURL      string
	AMQPQueue    string
	KafkaBrokers []string
	KafkaTopic   string

	CORSAllowedOrigins []string

	// PaymentServiceURL is empty when payment orders are opened out of band.
	PaymentServiceURL   string
	PaymentServiceToken string
	PaymentCallbackURL  string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		AppEnv:        strings.ToLower(strings.TrimSpace(getEnv("APP_ENV", "dev"))),
		HTTPAddr:      strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr)),
		DatabaseURL:   strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL)),
		LogLevel:      strings.TrimSpace(getEnv("LOG_LEVEL", "info")),
		LogFormat:     strings.TrimSpace(getEnv("LOG_FORMAT", "json")),
		JWTSecret:     strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret)),
		JWTIssuer:     strings.TrimSpace(getEnv("JWT_ISSUER", defaultJWTIssuer)),
		SweepEnabled:  parseBoolEnv("SWEEP_ENABLED", defaultSweepEnabled),
		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		EventBroker:   strings.ToLower(strings.TrimSpace(getEnv("EVENT_BROKER", BrokerNone))),
		AMQPURL:       strings.TrimSpace(os.Getenv("AMQP_URL")),
		AMQPQueue:     strings.TrimSpace(getEnv("AMQP_QUEUE", defaultAMQPQueue)),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:    strings.TrimSpace(getEnv("KAFKA_TOPIC", defaultKafkaTopic)),

		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		PaymentServiceURL:   strings.TrimSpace(os.Getenv("PAYMENT_SERVICE_URL")),
		PaymentServiceToken: strings.TrimSpace(os.Getenv("PAYMENT_SERVICE_TOKEN")),
		PaymentCallbackURL:  strings.TrimSpace(os.Getenv("PAYMENT_CALLBACK_URL")),
	}

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.HoldDuration, err = parseDurationEnv("HOLD_DURATION", defaultHoldDuration); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = parseDurationEnv("SWEEP_INTERVAL", defaultSweepInterval); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = parseDurationEnv("AVAILABILITY_CACHE_TTL", defaultCacheTTL); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}

	tz := strings.TrimSpace(getEnv("TIMEZONE", "UTC"))
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE value %q: %w", tz, err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.HoldDuration < minHoldDuration || cfg.HoldDuration > maxHoldDuration {
		return fmt.Errorf("HOLD_DURATION must be between %s and %s", minHoldDuration, maxHoldDuration)
	}
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be > 0")
	}
	if cfg.CacheTTL < 0 {
		return fmt.Errorf("AVAILABILITY_CACHE_TTL must be >= 0")
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be > 0")
	}

	switch cfg.EventBroker {
	case BrokerNone:
	case BrokerAMQP, BrokerKafka, BrokerBoth:
		if cfg.UsesAMQP() && cfg.AMQPURL == "" {
			return fmt.Errorf("AMQP_URL is required when EVENT_BROKER=%s", cfg.EventBroker)
		}
		if cfg.UsesKafka() && len(cfg.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENT_BROKER=%s", cfg.EventBroker)
		}
	default:
		return fmt.Errorf("EVENT_BROKER must be one of: none, amqp, kafka, both")
	}

	if cfg.PaymentServiceURL != "" && !strings.HasPrefix(cfg.PaymentServiceURL, "http://") && !strings.HasPrefix(cfg.PaymentServiceURL, "https://") {
		return fmt.Errorf("PAYMENT_SERVICE_URL must be an http(s) URL")
	}

	if isProdLike(cfg.AppEnv) && isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
		return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
	}
	return nil
}

func (c *Config) UsesAMQP() bool {
	return c.EventBroker == BrokerAMQP || c.EventBroker == BrokerBoth
}

func (c *Config) UsesKafka() bool {
	return c.EventBroker == BrokerKafka || c.EventBroker == BrokerBoth
}

func (c *Config) IsProduction() bool {
	return isProdLike(c.AppEnv)
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
