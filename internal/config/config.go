package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Mode        string
	Environment string
	HTTPAddr    string

	AuthJWTSecret string
	AuthTokenTTL  time.Duration

	OTLPEndpoint string
	Telemetry    TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// PlanReseed rewrites the plan catalog from the built-in definitions on
	// every start instead of only when the table is empty.
	PlanReseed bool

	Paystack  PaystackConfig
	Termii    TermiiConfig
	RateLimit RateLimitConfig
}

type PaystackConfig struct {
	SecretKey            string
	BaseURL              string
	CallbackURL          string
	Timeout              time.Duration
	WebhookAllowUnsigned bool
}

// RateLimitConfig sizes the redis token buckets in front of the public
// endpoints and the per-entity charge endpoints. Rates are tokens per second.
type RateLimitConfig struct {
	Enabled      bool
	AuthRate     float64
	AuthBurst    int
	WebhookRate  float64
	WebhookBurst int
	PaymentRate  float64
	PaymentBurst int
}

// TelemetryConfig drives logging verbosity and the OTLP exporters.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	OtelEnabled   bool
	OtelProtocol  string
	SamplingRatio float64
}

type TermiiConfig struct {
	APIKey    string
	BaseURL   string
	ChannelID string
	Timeout   time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:       getenv("APP_SERVICE", "invoicepadi"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Mode:          normalizeMode(getenv("APP_MODE", ModeAll)),
		Environment:   getenv("ENVIRONMENT", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthTokenTTL:  getenvDuration("AUTH_TOKEN_TTL", 7*24*time.Hour),
		OTLPEndpoint:  getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),

		Telemetry: TelemetryConfig{
			LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:   getenvBool("OTEL_ENABLED", false),
			OtelProtocol:  strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "invoicepadi"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 1800)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 300)),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       int(getenvInt64("REDIS_DB", 0)),

		PlanReseed: getenvBool("PLAN_RESEED", false),

		Paystack: PaystackConfig{
			SecretKey:            strings.TrimSpace(getenv("PAYSTACK_SECRET_KEY", "")),
			BaseURL:              strings.TrimRight(getenv("PAYSTACK_BASE_URL", "https://api.paystack.co"), "/"),
			CallbackURL:          getenv("PAYSTACK_CALLBACK_URL", ""),
			Timeout:              getenvDuration("PAYSTACK_TIMEOUT", 15*time.Second),
			WebhookAllowUnsigned: getenvBool("WEBHOOK_ALLOW_UNSIGNED", false),
		},
		Termii: TermiiConfig{
			APIKey:    strings.TrimSpace(getenv("TERMII_API_KEY", "")),
			BaseURL:   strings.TrimRight(getenv("TERMII_BASE_URL", "https://api.ng.termii.com"), "/"),
			ChannelID: getenv("TERMII_CHANNEL_ID", ""),
			Timeout:   getenvDuration("TERMII_TIMEOUT", 10*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled:      getenvBool("RATE_LIMIT_ENABLED", false),
			AuthRate:     getenvFloat("RATE_LIMIT_AUTH_RATE", 0.2),
			AuthBurst:    int(getenvInt64("RATE_LIMIT_AUTH_BURST", 10)),
			WebhookRate:  getenvFloat("RATE_LIMIT_WEBHOOK_RATE", 20),
			WebhookBurst: int(getenvInt64("RATE_LIMIT_WEBHOOK_BURST", 100)),
			PaymentRate:  getenvFloat("RATE_LIMIT_PAYMENT_RATE", 0.5),
			PaymentBurst: int(getenvInt64("RATE_LIMIT_PAYMENT_BURST", 5)),
		},
	}

	return cfg
}

const (
	ModeAll       = "all"
	ModeAPI       = "api"
	ModeScheduler = "scheduler"
)

func (c Config) RunsAPI() bool {
	return c.Mode == ModeAll || c.Mode == ModeAPI
}

func (c Config) RunsScheduler() bool {
	return c.Mode == ModeAll || c.Mode == ModeScheduler
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func normalizeMode(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case ModeAPI, ModeScheduler:
		return value
	default:
		return ModeAll
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
