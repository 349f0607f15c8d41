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

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Firebase FirebaseConfig
	Billing  BillingConfig
	Limits   LimitsConfig
	Audit    AuditConfig
	App      AppConfig
}

type ServerConfig struct {
	Port           string
	TrustedOrigins []string
}

type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds each model request attempt.
	Timeout time.Duration
}

type FirebaseConfig struct {
	CredentialsPath string
}

type BillingConfig struct {
	RevisionCost   int
	DefaultCredits int
}

type LimitsConfig struct {
	RevisionsPerMinute int
	LockTTL            time.Duration
}

type AuditConfig struct {
	Schedule   string
	StaleAfter time.Duration
}

type AppConfig struct {
	Environment     string
	LogLevel        string
	Version         string
	Store           string
	AllowHeaderAuth bool
}

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "3000"),
			TrustedOrigins: getEnvAsList("TRUSTED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "sitebuilder"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		LLM: LLMConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			Model:   getEnv("LLM_MODEL", "gpt-4o-mini"),
			Timeout: getEnvAsDuration("LLM_TIMEOUT", 2*time.Minute),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Billing: BillingConfig{
			RevisionCost:   getEnvAsInt("REVISION_COST", 5),
			DefaultCredits: getEnvAsInt("DEFAULT_CREDITS", 20),
		},
		Limits: LimitsConfig{
			RevisionsPerMinute: getEnvAsInt("REVISION_RATE_PER_MIN", 6),
			LockTTL:            getEnvAsDuration("LOCK_TTL", 5*time.Minute),
		},
		Audit: AuditConfig{
			Schedule:   getEnv("AUDIT_CRON", "0 */15 * * * *"),
			StaleAfter: getEnvAsDuration("AUDIT_STALE_AFTER", 30*time.Minute),
		},
		App: AppConfig{
			Environment:     getEnv("APP_ENV", "development"),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			Version:         getEnv("APP_VERSION", "1.0.0"),
			Store:           getEnv("STORE", StorePostgres),
			AllowHeaderAuth: getEnvAsBool("AUTH_ALLOW_HEADER", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.App.Store {
	case StorePostgres:
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("DB_DSN or DB_HOST is required")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.App.Store)
	}

	if c.Billing.RevisionCost <= 0 {
		return fmt.Errorf("REVISION_COST must be positive")
	}
	if c.Billing.DefaultCredits < 0 {
		return fmt.Errorf("DEFAULT_CREDITS must not be negative")
	}

	if c.LLM.Timeout > 0 && c.Limits.LockTTL > 0 && c.LLM.Timeout >= c.Limits.LockTTL {
		return fmt.Errorf("LLM_TIMEOUT (%s) must be shorter than LOCK_TTL (%s)", c.LLM.Timeout, c.Limits.LockTTL)
	}

	if c.App.Environment == "production" {
		if c.Firebase.CredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required in production")
		}
		if c.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required in production")
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
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
		log.Printf("Warning: Invalid boolean for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	out := make([]string, 0, 4)
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
