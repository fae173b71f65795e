package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress         string
	DatabaseURI        string
	PublicBaseURL      string
	LogLevel           string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	DefaultGateway    string
	Currency          string
	OrderNumberLength int
	ShippingRates     string
	GatewayTimeout    time.Duration

	ReceiptSecret string
	ReceiptTTL    time.Duration

	GPWebpay GPWebpayConfig
	Comgate  ComgateConfig

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxWorkers      int
	OutboxMaxAttempts  int

	SMTP          SMTPConfig
	MailFrom      string
	OperatorEmail string

	KafkaBrokers []string
	KafkaTopic   string
}

// GPWebpayConfig configures the GP webpay redirect gateway.
type GPWebpayConfig struct {
	URL            string
	MerchantNumber string
	PrivateKeyPath string
	KeyPassword    string
	PublicKeyPath  string
	DigestHash     string
	ResultRedirect string
}

// Enabled reports whether the gateway has a merchant configured.
func (c GPWebpayConfig) Enabled() bool { return c.MerchantNumber != "" }

// ComgateConfig configures the Comgate server-to-server gateway.
type ComgateConfig struct {
	URL      string
	Merchant string
	Secret   string
	Test     bool
}

func (c ComgateConfig) Enabled() bool { return c.Merchant != "" }

// UsesDefaultReceiptSecret reports whether receipts are signed with the
// built-in development secret.
func (c *Config) UsesDefaultReceiptSecret() bool { return c.ReceiptSecret == defaultReceiptSecret }

// PaymentsEnabled reports whether any gateway is configured.
func (c *Config) PaymentsEnabled() bool { return c.GPWebpay.Enabled() || c.Comgate.Enabled() }

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

const (
	defaultRunAddress         = ":8080"
	defaultLogLevel           = "info"
	defaultShutdownTimeout    = 10 * time.Second
	defaultCORSOrigins        = "*"
	defaultGateway            = "gpwebpay"
	defaultCurrency           = "CZK"
	defaultOrderNumberLength  = 10
	maxOrderNumberLength      = 10
	minOrderNumberLength      = 4
	defaultShippingRates      = "CZ=150,SK=300,*=500"
	defaultGatewayTimeout     = 10 * time.Second
	defaultReceiptSecret      = "change-me-in-production"
	defaultReceiptTTL         = 72 * time.Hour
	defaultGPWebpayURL        = "https://test.3dsecure.gpwebpay.com/pgw/order.do"
	defaultGPWebpayDigestHash = "sha1"
	defaultComgateURL         = "https://payments.comgate.cz/v1.0"
	defaultOutboxPollInterval = 2 * time.Second
	defaultOutboxBatchSize    = 16
	defaultOutboxWorkers      = 2
	defaultOutboxMaxAttempts  = 8
	defaultSMTPPort           = 587
	defaultSMTPTimeout        = 15 * time.Second
	defaultKafkaTopic         = "artshop.orders"
)

// dotenvPath is applied before the environment is read. A missing file is ignored.
var dotenvPath = ".env"

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", dotenvPath, err)
	}
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:         getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:        getString(lookup, "DATABASE_URI", ""),
		PublicBaseURL:      getString(lookup, "PUBLIC_BASE_URL", ""),
		LogLevel:           getString(lookup, "LOG_LEVEL", defaultLogLevel),
		ShutdownTimeout:    getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		CORSAllowedOrigins: getList(lookup, "CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		DefaultGateway:     getString(lookup, "DEFAULT_GATEWAY", defaultGateway),
		Currency:           getString(lookup, "CURRENCY", defaultCurrency),
		OrderNumberLength:  getInt(lookup, "ORDER_NUMBER_LENGTH", defaultOrderNumberLength),
		ShippingRates:      getString(lookup, "SHIPPING_RATES", defaultShippingRates),
		GatewayTimeout:     getDuration(lookup, "GATEWAY_TIMEOUT", defaultGatewayTimeout),
		ReceiptSecret:      getString(lookup, "RECEIPT_SECRET", defaultReceiptSecret),
		ReceiptTTL:         getDuration(lookup, "RECEIPT_TTL", defaultReceiptTTL),
		GPWebpay: GPWebpayConfig{
			URL:            getString(lookup, "GPWEBPAY_URL", defaultGPWebpayURL),
			MerchantNumber: getString(lookup, "GPWEBPAY_MERCHANT_NUMBER", ""),
			PrivateKeyPath: getString(lookup, "GPWEBPAY_PRIVATE_KEY", ""),
			KeyPassword:    getString(lookup, "GPWEBPAY_KEY_PASSWORD", ""),
			PublicKeyPath:  getString(lookup, "GPWEBPAY_PUBLIC_KEY", ""),
			DigestHash:     getString(lookup, "GPWEBPAY_DIGEST_HASH", defaultGPWebpayDigestHash),
			ResultRedirect: getString(lookup, "GPWEBPAY_RESULT_REDIRECT", ""),
		},
		Comgate: ComgateConfig{
			URL:      getString(lookup, "COMGATE_URL", defaultComgateURL),
			Merchant: getString(lookup, "COMGATE_MERCHANT", ""),
			Secret:   getString(lookup, "COMGATE_SECRET", ""),
			Test:     getBool(lookup, "COMGATE_TEST", false),
		},
		OutboxPollInterval: getDuration(lookup, "OUTBOX_POLL_INTERVAL", defaultOutboxPollInterval),
		OutboxBatchSize:    getInt(lookup, "OUTBOX_BATCH_SIZE", defaultOutboxBatchSize),
		OutboxWorkers:      getInt(lookup, "OUTBOX_WORKERS", defaultOutboxWorkers),
		OutboxMaxAttempts:  getInt(lookup, "OUTBOX_MAX_ATTEMPTS", defaultOutboxMaxAttempts),
		SMTP: SMTPConfig{
			Host:     getString(lookup, "SMTP_HOST", ""),
			Port:     getInt(lookup, "SMTP_PORT", defaultSMTPPort),
			Username: getString(lookup, "SMTP_USERNAME", ""),
			Password: getString(lookup, "SMTP_PASSWORD", ""),
			Timeout:  getDuration(lookup, "SMTP_TIMEOUT", defaultSMTPTimeout),
		},
		MailFrom:      getString(lookup, "MAIL_FROM", ""),
		OperatorEmail: getString(lookup, "OPERATOR_EMAIL", ""),
		KafkaBrokers:  getList(lookup, "KAFKA_BROKERS", ""),
		KafkaTopic:    getString(lookup, "KAFKA_TOPIC", defaultKafkaTopic),
	}

	fs := flag.NewFlagSet("artshop", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		outboxIntervalStr  = cfg.OutboxPollInterval.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.PublicBaseURL, "public-url", cfg.PublicBaseURL, "Public base URL used for gateway callbacks")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.DefaultGateway, "gateway", cfg.DefaultGateway, "Gateway serving the unprefixed payment routes")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&outboxIntervalStr, "outbox-interval", outboxIntervalStr, "Interval between outbox polls")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.OutboxPollInterval, err = time.ParseDuration(outboxIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid outbox interval: %w", err)
	}

	secrets := []struct {
		env    string
		target *string
	}{
		{"RECEIPT_SECRET_FILE", &cfg.ReceiptSecret},
		{"COMGATE_SECRET_FILE", &cfg.Comgate.Secret},
		{"GPWEBPAY_KEY_PASSWORD_FILE", &cfg.GPWebpay.KeyPassword},
	}
	for _, s := range secrets {
		if err := readSecretFile(lookup, s.env, s.target); err != nil {
			return nil, err
		}
	}

	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) normalize() {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = defaultGatewayTimeout
	}
	if cfg.ReceiptTTL <= 0 {
		cfg.ReceiptTTL = defaultReceiptTTL
	}
	if cfg.OrderNumberLength <= 0 {
		cfg.OrderNumberLength = defaultOrderNumberLength
	}
	if cfg.OutboxPollInterval <= 0 {
		cfg.OutboxPollInterval = defaultOutboxPollInterval
	}
	if cfg.OutboxBatchSize <= 0 {
		cfg.OutboxBatchSize = defaultOutboxBatchSize
	}
	if cfg.OutboxWorkers <= 0 {
		cfg.OutboxWorkers = defaultOutboxWorkers
	}
	if cfg.OutboxMaxAttempts <= 0 {
		cfg.OutboxMaxAttempts = defaultOutboxMaxAttempts
	}
	if cfg.SMTP.Port <= 0 {
		cfg.SMTP.Port = defaultSMTPPort
	}
	if cfg.SMTP.Timeout <= 0 {
		cfg.SMTP.Timeout = defaultSMTPTimeout
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{defaultCORSOrigins}
	}
	cfg.DefaultGateway = strings.ToLower(strings.TrimSpace(cfg.DefaultGateway))
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	cfg.ReceiptSecret = strings.TrimSpace(cfg.ReceiptSecret)
	cfg.Comgate.Secret = strings.TrimSpace(cfg.Comgate.Secret)
	cfg.GPWebpay.KeyPassword = strings.TrimRight(cfg.GPWebpay.KeyPassword, "\r\n")
}

func (cfg *Config) validate() error {
	if cfg.DatabaseURI == "" {
		return fmt.Errorf("database URI must be provided")
	}
	if cfg.PublicBaseURL == "" {
		return fmt.Errorf("public base URL must be provided")
	}
	if cfg.OrderNumberLength < minOrderNumberLength || cfg.OrderNumberLength > maxOrderNumberLength {
		return fmt.Errorf("order number length must be between %d and %d", minOrderNumberLength, maxOrderNumberLength)
	}
	if cfg.GPWebpay.Enabled() && (cfg.GPWebpay.PrivateKeyPath == "" || cfg.GPWebpay.PublicKeyPath == "") {
		return fmt.Errorf("gpwebpay private and public key paths must be provided")
	}
	if cfg.Comgate.Enabled() && cfg.Comgate.Secret == "" {
		return fmt.Errorf("comgate secret must be provided")
	}
	return nil
}

func readSecretFile(lookup envLookup, key string, target *string) error {
	path, ok := lookup(key)
	if !ok || path == "" {
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", strings.ToLower(key), err)
	}
	*target = strings.TrimRight(string(content), "\r\n")
	return nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getList(lookup envLookup, key, def string) []string {
	raw := getString(lookup, key, def)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
