package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	aws_pkg "github.com/dachishengelia/restyle-backend/pkg/aws"
	"github.com/joho/godotenv"
)

const (
	CatalogMongo    = "mongo"
	CatalogDynamoDB = "dynamodb"

	TransportSNS = "sns"
	TransportSQS = "sqs"
)

type Config struct {
	Port   string
	AppEnv string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	StripeAPIKey           string
	StripeWebhookSecret    string
	StripeWebhookTolerance time.Duration
	StripeTimeout          time.Duration

	Currency    string
	FrontendURL string
	SuccessPath string
	CancelPath  string

	CatalogBackend  string
	MongoURL        string
	MongoDBName     string
	ProductsTable   string
	RedisURL        string
	CatalogCacheTTL time.Duration

	NotificationTransport string
	NotificationTopicARN  string
	NotificationQueueURL  string

	WebhookArchiveBucket string
	AllowedOrigins       []string
	GatewaySecret        string
	CheckoutRatePerMin   int

	UseSecrets        bool
	CloudWatchEnabled bool
}

type secretSource interface {
	GetSecretJSON(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads configuration from environment variables with optional Secrets Manager override.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var secrets secretSource
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
		if err != nil {
			return nil, err
		}
		secrets = aws_pkg.NewSecretsClient(awsCfg)
	}
	return load(context.Background(), secrets)
}

func load(ctx context.Context, secrets secretSource) (*Config, error) {
	cfg := &Config{
		Port:   getEnv("PORT", "8088"),
		AppEnv: getEnv("APP_ENV", "development"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		StripeAPIKey:        os.Getenv("STRIPE_API_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		Currency:    strings.ToLower(getEnv("CHECKOUT_CURRENCY", "usd")),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		SuccessPath: getEnv("CHECKOUT_SUCCESS_PATH", "/success"),
		CancelPath:  getEnv("CHECKOUT_CANCEL_PATH", "/cancel"),

		CatalogBackend: strings.ToLower(getEnv("CATALOG_BACKEND", CatalogMongo)),
		MongoURL:       os.Getenv("MONGO_DB_URL"),
		MongoDBName:    getEnv("MONGO_DB_NAME", "restyle"),
		ProductsTable:  getEnv("DDB_TABLE_PRODUCTS", "Products"),
		RedisURL:       os.Getenv("REDIS_URL"),

		NotificationTransport: strings.ToLower(getEnv("NOTIFICATION_TRANSPORT", TransportSNS)),
		NotificationTopicARN:  os.Getenv("NOTIFICATION_SNS_TOPIC_ARN"),
		NotificationQueueURL:  os.Getenv("NOTIFICATION_QUEUE_URL"),

		WebhookArchiveBucket: os.Getenv("WEBHOOK_ARCHIVE_BUCKET"),
		AllowedOrigins:       splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		GatewaySecret:        os.Getenv("GATEWAY_SHARED_SECRET"),

		UseSecrets:        os.Getenv("AWS_USE_SECRETS") == "true",
		CloudWatchEnabled: os.Getenv("CLOUDWATCH_ENABLED") == "true",
	}

	var err error
	if cfg.StripeWebhookTolerance, err = getDuration("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.StripeTimeout, err = getDuration("STRIPE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.CatalogCacheTTL, err = getDuration("CATALOG_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CheckoutRatePerMin, err = strconv.Atoi(getEnv("CHECKOUT_RATE_LIMIT_PER_MINUTE", "30")); err != nil {
		return nil, fmt.Errorf("invalid CHECKOUT_RATE_LIMIT_PER_MINUTE: %w", err)
	}

	if secrets != nil {
		applySecrets(ctx, cfg, secrets)
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" || cfg.PostgresHost == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	if cfg.StripeAPIKey == "" || cfg.StripeWebhookSecret == "" {
		return nil, fmt.Errorf("stripe config incomplete")
	}
	if cfg.CatalogBackend != CatalogMongo && cfg.CatalogBackend != CatalogDynamoDB {
		return nil, fmt.Errorf("unknown CATALOG_BACKEND %q", cfg.CatalogBackend)
	}
	if cfg.CatalogBackend == CatalogMongo && cfg.MongoURL == "" {
		return nil, fmt.Errorf("MONGO_DB_URL is required for the mongo catalog")
	}
	if cfg.NotificationTransport != TransportSNS && cfg.NotificationTransport != TransportSQS {
		return nil, fmt.Errorf("unknown NOTIFICATION_TRANSPORT %q", cfg.NotificationTransport)
	}
	return cfg, nil
}

// applySecrets overrides database and Stripe credentials; a missing secret leaves the env values in place.
func applySecrets(ctx context.Context, cfg *Config, secrets secretSource) {
	if m, err := secrets.GetSecretJSON(ctx, "checkout/DB_CREDENTIALS"); err == nil {
		override(&cfg.PostgresUser, m["POSTGRES_USER"])
		override(&cfg.PostgresPassword, m["POSTGRES_PASSWORD"])
		override(&cfg.PostgresDB, m["POSTGRES_DB"])
		override(&cfg.PostgresHost, m["POSTGRES_HOST"])
		override(&cfg.PostgresPort, m["POSTGRES_PORT"])
	}
	if m, err := secrets.GetSecretJSON(ctx, "checkout/STRIPE_KEYS"); err == nil {
		override(&cfg.StripeAPIKey, m["STRIPE_API_KEY"])
		override(&cfg.StripeWebhookSecret, m["STRIPE_WEBHOOK_SECRET"])
	}
	if m, err := secrets.GetSecretJSON(ctx, "checkout/GATEWAY"); err == nil {
		override(&cfg.GatewaySecret, m["GATEWAY_SHARED_SECRET"])
	}
}

// PostgresDSN builds the connection string for the orders database.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone)
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
