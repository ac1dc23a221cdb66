package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Service-to-service auth configuration
	Auth AuthConfig

	// Inventory service (cross-service resolution) configuration
	Inventory InventoryConfig

	// Webhook intake configuration
	Webhook WebhookConfig

	// Feed import configuration
	Feed FeedConfig

	// Stay-completion sweeper configuration
	Sweeper SweeperConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// AuthConfig holds service-token verification configuration.
// Tokens are minted by the identity service; this service only verifies.
type AuthConfig struct {
	ServiceTokenSecret string
	Issuer             string
}

// InventoryConfig holds the inventory service RPC configuration
type InventoryConfig struct {
	Host       string
	Port       string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
}

// BaseURL builds the inventory service base URL
func (c InventoryConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%s", c.Host, c.Port)
}

// WebhookConfig holds per-provider intake tokens. ProviderTokens maps a
// provider name to the bcrypt hash of its shared webhook token.
type WebhookConfig struct {
	ProviderTokens map[string]string
}

// FeedConfig holds feed import limits
type FeedConfig struct {
	MaxDocumentBytes int
	MaxOffers        int
}

// SweeperConfig holds the stay-completion sweeper configuration
type SweeperConfig struct {
	Enabled  bool
	Schedule string // cron expression with seconds
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Auth: AuthConfig{
			ServiceTokenSecret: getEnv("SERVICE_TOKEN_SECRET", ""),
			Issuer:             getEnv("SERVICE_TOKEN_ISSUER", "identity-service"),
		},
		Inventory: InventoryConfig{
			Host:       getEnv("INVENTORY_HOST", "inventory"),
			Port:       getEnv("INVENTORY_PORT", "8081"),
			Timeout:    time.Duration(getEnvAsInt("INVENTORY_TIMEOUT_SECONDS", 5)) * time.Second,
			Retries:    getEnvAsInt("INVENTORY_RETRIES", 3),
			RetryDelay: time.Duration(getEnvAsInt("INVENTORY_RETRY_DELAY_MS", 250)) * time.Millisecond,
		},
		Webhook: WebhookConfig{
			ProviderTokens: getEnvAsTokenMap("WEBHOOK_PROVIDER_TOKENS"),
		},
		Feed: FeedConfig{
			MaxDocumentBytes: getEnvAsInt("FEED_MAX_DOCUMENT_BYTES", 5*1024*1024),
			MaxOffers:        getEnvAsInt("FEED_MAX_OFFERS", 1000),
		},
		Sweeper: SweeperConfig{
			Enabled:  getEnvAsBool("SWEEPER_ENABLED", true),
			Schedule: getEnv("SWEEPER_SCHEDULE", "0 0 4 * * *"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "X-Webhook-Token"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Auth.ServiceTokenSecret == "" {
		return fmt.Errorf("SERVICE_TOKEN_SECRET is required")
	}

	if c.Server.Environment == "production" && len(c.Webhook.ProviderTokens) == 0 {
		return fmt.Errorf("WEBHOOK_PROVIDER_TOKENS is required in production mode")
	}

	if c.Inventory.Retries < 0 {
		return fmt.Errorf("INVENTORY_RETRIES cannot be negative")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// getEnvAsTokenMap parses "provider:bcrypt-hash" pairs separated by commas.
// Bcrypt hashes contain no commas or colons beyond the $ separators, so the
// first colon splits provider from hash.
func getEnvAsTokenMap(key string) map[string]string {
	result := make(map[string]string)
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return result
	}
	for _, pair := range strings.Split(valueStr, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idx := strings.Index(pair, ":")
		if idx <= 0 || idx == len(pair)-1 {
			log.Printf("Invalid webhook token entry in %s, skipping", key)
			continue
		}
		result[pair[:idx]] = pair[idx+1:]
	}
	return result
}
