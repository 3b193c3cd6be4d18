package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string // sqlite, postgres, mysql
	DatabasePath    string // for sqlite
	DatabaseURL     string // for postgres/mysql
	SessionDuration time.Duration
	ResetTokenTTL   time.Duration
	APITokenTTL     time.Duration
	JWTSecret       string
	AppBaseURL      string
	AWSRegion       string
	SESFromEmail    string
	SESFromName     string
	MailSendTimeout time.Duration
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	cfg := &Config{
		ServerPort:      getEnv("PORT", "8080"),
		DatabaseType:    getEnv("DB_TYPE", "sqlite"),
		DatabasePath:    getEnv("DB_PATH", "./fittrack.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SessionDuration: time.Duration(getEnvInt("SESSION_DURATION_HOURS", 24)) * time.Hour,
		ResetTokenTTL:   time.Duration(getEnvInt("RESET_TOKEN_TTL_SECONDS", 3600)) * time.Second,
		APITokenTTL:     time.Duration(getEnvInt("API_TOKEN_TTL_HOURS", 24)) * time.Hour,
		JWTSecret:       getEnv("JWT_SECRET", ""),
		AppBaseURL:      getEnv("APP_BASE_URL", "http://localhost:8080"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:    getEnv("SES_FROM_EMAIL", ""),
		SESFromName:     getEnv("SES_FROM_NAME", "FitTrack"),
		MailSendTimeout: time.Duration(getEnvInt("MAIL_SEND_TIMEOUT_SECONDS", 10)) * time.Second,
	}

	// Never sign tokens with an empty key. An ephemeral secret keeps a dev
	// setup working; production must set JWT_SECRET or tokens are
	// invalidated on every restart.
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = generateSecret()
		log.Println("JWT_SECRET not set; using a generated secret, API tokens will not survive a restart")
	}

	return cfg
}

// generateSecret returns a random 256-bit hex secret
func generateSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Fatalf("Failed to generate JWT secret: %v", err)
	}
	return hex.EncodeToString(bytes)
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt reads an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
