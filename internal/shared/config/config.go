package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Events   EventStoreConfig
	Auth     AuthConfig
	Registry RegistryConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// EventStoreConfig holds configuration for the KurrentDB event stream.
type EventStoreConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Insecure bool
	Username string
	Password string
}

type AuthConfig struct {
	JWTSecret     string
	SessionCookie string
}

// RegistryConfig holds configuration for the legacy court registry
// (SQL Server). Optional: judicial services work without it.
type RegistryConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func Load() (*Config, error) {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "legalaid"),
			Password: getEnv("DB_PASSWORD", "legalaid"),
			Database: getEnv("DB_NAME", "legalaid"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Events: EventStoreConfig{
			Enabled:  getEnvBool("EVENTSTORE_ENABLED", false),
			Host:     getEnv("EVENTSTORE_HOST", "localhost"),
			Port:     getEnvInt("EVENTSTORE_PORT", 2113),
			Insecure: getEnvBool("EVENTSTORE_INSECURE", true),
			Username: getEnv("EVENTSTORE_USERNAME", ""),
			Password: getEnv("EVENTSTORE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			SessionCookie: getEnv("SESSION_COOKIE", "legalaid_session"),
		},
		Registry: RegistryConfig{
			Enabled:  getEnvBool("COURT_REGISTRY_ENABLED", false),
			Host:     getEnv("COURT_REGISTRY_HOST", "localhost"),
			Port:     getEnvInt("COURT_REGISTRY_PORT", 1433),
			User:     getEnv("COURT_REGISTRY_USER", ""),
			Password: getEnv("COURT_REGISTRY_PASSWORD", ""),
			Database: getEnv("COURT_REGISTRY_DB", "CourtRegistry"),
			SSLMode:  getEnv("COURT_REGISTRY_SSLMODE", "disable"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
