package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for our application
type Config struct {
	DiscordToken  string
	DatabaseDSN   string
	HTTPAddr      string
	LogLevel      string
	CommandPrefix string
	QueryTimeout  time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// .env file is optional, continue with environment variables
	}

	config := &Config{
		DiscordToken:  os.Getenv("DISCORD_TOKEN"),
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		CommandPrefix: getEnv("COMMAND_PREFIX", "!activity"),
		QueryTimeout:  5 * time.Second,
	}

	if config.DiscordToken == "" {
		return nil, &ConfigError{Field: "DISCORD_TOKEN", Message: "DISCORD_TOKEN is required"}
	}

	if config.DatabaseDSN == "" {
		return nil, &ConfigError{Field: "DATABASE_DSN", Message: "DATABASE_DSN is required"}
	}

	if raw := os.Getenv("QUERY_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			return nil, &ConfigError{Field: "QUERY_TIMEOUT", Message: "QUERY_TIMEOUT must be a positive duration, e.g. 5s"}
		}
		config.QueryTimeout = timeout
	}

	return config, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
