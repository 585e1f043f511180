package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/loomworks/loom-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Config holds application configuration values
type Config struct {
	ServerPort     string
	JWTSecret      string
	JWTExpiration  time.Duration
	MetadataDbDir  string
	MetadataDbFile string
	BlobDir        string // per-account knowledge/training file storage

	// Outbound boundaries
	OpenAIAPIKey  string
	OpenAIBaseURL string // override for self-hosted gateways; empty = default

	FetchTimeout    time.Duration // per external-table fetch
	InquiryDeadline time.Duration // whole prepare run

	RateLimitPerMinute int // per-IP request budget
}

// LoadConfig loads configuration from environment variables.
// It uses a .env file for local development if present (ignores it for production).
func LoadConfig() (*Config, error) {
	customLog.Println("Loading configuration from environment variables...")

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			customLog.Warnf("Warning: Error loading .env file: %v", err)
		}
	}

	port := getEnv("SERVER_PORT", "8080")
	jwtSecret := getEnv("JWT_SECRET", "")
	jwtExpHoursStr := getEnv("JWT_EXPIRATION_HOURS", "24")
	dbDir := getEnv("DATABASE_DIRECTORY", "data")
	dbFile := getEnv("DATABASE_DIRECTORY_FILE", "metadata.db")
	blobDir := getEnv("BLOB_DIRECTORY", "data/blobs")
	openAIKey := getEnv("OPENAI_API_KEY", "")
	openAIBase := os.Getenv("OPENAI_BASE_URL")

	// Critical: Ensure JWT Secret is set
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable must be set")
	}
	if openAIKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable must be set")
	}

	jwtExpHours, err := strconv.Atoi(jwtExpHoursStr)
	if err != nil || jwtExpHours <= 0 {
		customLog.Warnf("Invalid JWT_EXPIRATION_HOURS '%s'. Using default 24h. Error: %v", jwtExpHoursStr, err)
		jwtExpHours = 24
	}

	fetchTimeout := getEnvSeconds("FETCH_TIMEOUT_SECONDS", 10)
	inquiryDeadline := getEnvSeconds("INQUIRY_DEADLINE_SECONDS", 120)
	rateLimit := getEnvInt("RATE_LIMIT_PER_MINUTE", 60)

	cfg := &Config{
		ServerPort:         port,
		JWTSecret:          jwtSecret,
		JWTExpiration:      time.Hour * time.Duration(jwtExpHours),
		MetadataDbDir:      dbDir,
		MetadataDbFile:     dbFile,
		BlobDir:            blobDir,
		OpenAIAPIKey:       openAIKey,
		OpenAIBaseURL:      openAIBase,
		FetchTimeout:       fetchTimeout,
		InquiryDeadline:    inquiryDeadline,
		RateLimitPerMinute: rateLimit,
	}

	customLog.Printf("Configuration loaded successfully. Port: %s, JWT Exp: %v, Fetch timeout: %v",
		cfg.ServerPort, cfg.JWTExpiration, cfg.FetchTimeout)
	return cfg, nil
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt parses a positive integer, falling back on bad input.
func getEnvInt(key string, fallback int) int {
	raw := getEnv(key, strconv.Itoa(fallback))
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		customLog.Warnf("Invalid %s '%s'. Using default %d.", key, raw, fallback)
		n = fallback
	}
	return n
}

// getEnvSeconds parses a duration given in whole seconds, falling back on bad input.
func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}
