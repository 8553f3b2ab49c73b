package config

import (
	"fmt"
	"os"
	"time"
)

const (
	ServiceName    = "cart-service"
	ServiceVersion = "0.1.0"
)

const (
	ReservationTopic = "cart.reservation-changed"
	BatchTimeout     = 10 * time.Millisecond
	BatchSize        = 100
)

const (
	LogsPath      = "/otlp/v1/logs"
	TracesPath    = "/otlp/v1/traces"
	ExportTimeout = 30 * time.Second
	MaxQueueSize  = 2048
)

const (
	DefaultHTTPAddr       = ":8080"
	DefaultTokenTTL       = 120 * time.Minute
	DefaultCartExpiration = 15 * time.Minute
	DefaultSweepInterval  = time.Minute
)

type Config struct {
	HTTPAddr       string
	JWTSecret      string
	JWTIssuer      string
	TokenTTL       time.Duration
	KafkaBroker    string
	OtelEndpoint   string
	OtelAuthHeader string
	CartExpiration time.Duration
	SweepInterval  time.Duration
}

func LoadConfig() (*Config, error) {
	config := &Config{
		HTTPAddr:       envOrDefault("HTTP_ADDR", DefaultHTTPAddr),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTIssuer:      envOrDefault("JWT_ISSUER", ServiceName),
		TokenTTL:       DefaultTokenTTL,
		KafkaBroker:    os.Getenv("KAFKA_BROKER"),
		OtelEndpoint:   os.Getenv("OTEL_ENDPOINT"),
		OtelAuthHeader: os.Getenv("OTEL_AUTH_HEADER"),
	}

	if config.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	var err error
	config.CartExpiration, err = durationOrDefault("CART_EXPIRATION", DefaultCartExpiration)
	if err != nil {
		return nil, err
	}
	config.SweepInterval, err = durationOrDefault("SWEEP_INTERVAL", DefaultSweepInterval)
	if err != nil {
		return nil, err
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: duration must be positive, got %q", key, v)
	}
	return d, nil
}
