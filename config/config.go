package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	AppPort string
	AppURL  string

	StoreDriver   string
	DatabaseURL   string
	MongoURL      string
	MongoDatabase string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	AssetFolder         string

	GCSProjectID  string
	GCSBucketName string

	JWTSecret     string
	WebhookSecret string

	RedisURL string
	NatsURL  string
	LogLevel string

	InitialCredits      int
	DebounceDelay       time.Duration
	SessionTTL          time.Duration
	ExternalTimeout     time.Duration
	CacheTTL            time.Duration
	DeleteSwallowErrors bool
	ApplyRatePerMinute  int
}

// Load reads .env when present and builds the configuration from the
// environment. Missing required variables are reported together.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	cfg := &Config{
		AppPort:             getEnv("APP_PORT", "3000"),
		AppURL:              getEnv("APP_URL", "http://localhost:3000"),
		StoreDriver:         getEnv("STORE_DRIVER", "postgres"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		MongoURL:            os.Getenv("MONGODB_URL"),
		MongoDatabase:       getEnv("MONGODB_DATABASE", "imaginify"),
		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		AssetFolder:         getEnv("ASSET_FOLDER", "imaginify"),
		GCSProjectID:        os.Getenv("GSC_PROJECT_ID"),
		GCSBucketName:       os.Getenv("GSC_BUCKET_NAME"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		WebhookSecret:       os.Getenv("WEBHOOK_SECRET"),
		RedisURL:            os.Getenv("REDIS_URL"),
		NatsURL:             os.Getenv("NATS_URL"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		InitialCredits:      getEnvAsInt("INITIAL_CREDITS", 10),
		DebounceDelay:       getEnvAsDuration("DEBOUNCE_DELAY", time.Second),
		SessionTTL:          getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		ExternalTimeout:     getEnvAsDuration("EXTERNAL_TIMEOUT", 10*time.Second),
		CacheTTL:            getEnvAsDuration("CACHE_TTL", 60*time.Second),
		DeleteSwallowErrors: getEnvAsBool("DELETE_SWALLOW_ERRORS", true),
		ApplyRatePerMinute:  getEnvAsInt("APPLY_RATE_PER_MIN", 30),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case "mongo":
		if c.MongoURL == "" {
			missing = append(missing, "MONGODB_URL")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.CloudinaryCloudName == "" {
		missing = append(missing, "CLOUDINARY_CLOUD_NAME")
	}
	if c.CloudinaryAPIKey == "" {
		missing = append(missing, "CLOUDINARY_API_KEY")
	}
	if c.CloudinaryAPISecret == "" {
		missing = append(missing, "CLOUDINARY_API_SECRET")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s not set", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
