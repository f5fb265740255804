package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env              string
	HTTPAddr         string
	MongoURI         string
	MongoDB          string
	KafkaBrokers     []string
	KafkaTopicPrefix string
	IdempotencyTTL   time.Duration
	PaypalBaseURL    string
	PaypalClientID   string
	PaypalSecret     string
	PaypalWebhookID  string
	PaymentReturnURL string
	PaymentCancelURL string
	GatewayTimeout   time.Duration
	NotifyAttempts   int
	NotifyTopic      string
	Currency         string
	SweepInterval    time.Duration
	PendingTTL       time.Duration
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "shorestay"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		PaypalBaseURL:    getEnv("PAYPAL_BASE_URL", "https://api.sandbox.paypal.com"),
		PaypalClientID:   os.Getenv("PAYPAL_CLIENT_ID"),
		PaypalSecret:     os.Getenv("PAYPAL_CLIENT_SECRET"),
		PaypalWebhookID:  os.Getenv("PAYPAL_WEBHOOK_ID"),
		PaymentReturnURL: getEnv("PAYMENT_RETURN_URL", "http://localhost:3000/payment/success"),
		PaymentCancelURL: getEnv("PAYMENT_CANCEL_URL", "http://localhost:3000/payment/cancel"),
		NotifyTopic:      getEnv("NOTIFY_TOPIC", "reservation.notifications"),
		Currency:         getEnv("CURRENCY", "USD"),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	idempotencyTTL, err := parseDurationEnv("IDEMP_TTL", 168*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.IdempotencyTTL = idempotencyTTL

	gatewayTimeout, err := parseDurationEnv("GATEWAY_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.GatewayTimeout = gatewayTimeout

	sweepInterval, err := parseDurationEnv("SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval = sweepInterval

	pendingTTL, err := parseDurationEnv("PENDING_TTL", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.PendingTTL = pendingTTL

	attempts, err := parseIntEnv("NOTIFY_ATTEMPTS", 3)
	if err != nil {
		return Config{}, err
	}
	cfg.NotifyAttempts = attempts

	if cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return Config{}, fmt.Errorf("KAFKA_BROKERS is required")
	}
	if cfg.PaypalClientID == "" || cfg.PaypalSecret == "" {
		return Config{}, fmt.Errorf("PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET are required")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s integer: %q", key, raw)
	}
	return v, nil
}
