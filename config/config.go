package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	Database   DatabaseConfig
	Session    SessionConfig
	Log        LogConfig
	Admin      AdminConfig
}

// DatabaseConfig holds the connection settings for the relational store.
// Host, User and DBName have no defaults: leaving any of them unset marks
// the store as unconfigured.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
	PoolSize int
}

// Configured reports whether the required connection fields are present.
func (c DatabaseConfig) Configured() bool {
	return c.Host != "" && c.User != "" && c.DBName != ""
}

type SessionConfig struct {
	TTLDays int
}

type LogConfig struct {
	Level  string
	Format string
}

// AdminConfig is consumed only by the seed-admin command.
type AdminConfig struct {
	Name     string
	Email    string
	Password string
	Role     string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     strings.TrimSpace(getEnv("DB_HOST", "")),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     strings.TrimSpace(getEnv("DB_USER", "")),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   strings.TrimSpace(getEnv("DB_NAME", "")),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
		PoolSize: getEnvInt("DB_POOL_SIZE", 10),
	}
	if dbConfig.PoolSize < 1 {
		dbConfig.PoolSize = 10
	}

	ttlDays := getEnvInt("SESSION_TTL_DAYS", 7)
	if ttlDays < 1 {
		ttlDays = 7
	}

	return Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		Database:   dbConfig,
		Session:    SessionConfig{TTLDays: ttlDays},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Admin: AdminConfig{
			Name:     getEnv("ADMIN_NAME", "Admin"),
			Email:    getEnv("ADMIN_EMAIL", "admin@local.test"),
			Password: getEnv("ADMIN_PASSWORD", "admin123"),
			Role:     getEnv("ADMIN_ROLE", "admin"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists && strings.TrimSpace(valueStr) != "" {
		var value int
		if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue
	}
	return value
}
