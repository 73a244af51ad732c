package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Redis    RedisConfig
	Cron     CronConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string // development, staging, production
	LogLevel        string // debug, info, warn, error
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	AutoMigrate        bool
}

// JWTConfig holds the settings shared with the identity provider
type JWTConfig struct {
	Secret            string
	Issuer            string
	AccessTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// RedisConfig holds Redis configuration. An empty URL disables route popularity
// tracking and booking events.
type RedisConfig struct {
	URL              string
	PopularRoutesKey string
	EventsEnabled    bool
}

// Enabled reports whether a Redis server is configured
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// CronConfig holds scheduled job configuration
type CronConfig struct {
	Enabled       bool
	AuditSchedule string // six-field cron spec, seconds first
}

var defaults = map[string]interface{}{
	"PORT":        "8080",
	"ENVIRONMENT": "development",
	"LOG_LEVEL":   "info",

	"SERVER_READ_TIMEOUT":     15,
	"SERVER_WRITE_TIMEOUT":    15,
	"SERVER_IDLE_TIMEOUT":     60,
	"SERVER_SHUTDOWN_TIMEOUT": 30,

	"DATABASE_URL":                  "",
	"DATABASE_MAX_CONNECTIONS":      10,
	"DATABASE_MAX_IDLE_CONNECTIONS": 5,
	"DATABASE_CONN_MAX_LIFETIME":    300,
	"DATABASE_AUTO_MIGRATE":         true,

	"JWT_SECRET":              "",
	"JWT_ISSUER":              "travel-booking-auth",
	"JWT_ACCESS_TOKEN_EXPIRY": 3600,

	"CORS_ALLOWED_ORIGINS": "*",
	"CORS_ALLOWED_METHODS": "GET,POST,PATCH,OPTIONS",
	"CORS_ALLOWED_HEADERS": "Content-Type,Authorization,Idempotency-Key,X-Request-ID",

	"REDIS_URL":                "",
	"REDIS_POPULAR_ROUTES_KEY": "popular_routes",
	"REDIS_EVENTS_ENABLED":     true,

	"CRON_ENABLED":        true,
	"CRON_AUDIT_SCHEDULE": "0 0 * * * *",
}

// Load loads configuration from .env, an optional config.yaml and the environment.
// Environment variables win over the file.
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:            v.GetString("PORT"),
			Environment:     v.GetString("ENVIRONMENT"),
			LogLevel:        v.GetString("LOG_LEVEL"),
			ReadTimeout:     seconds(v, "SERVER_READ_TIMEOUT"),
			WriteTimeout:    seconds(v, "SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     seconds(v, "SERVER_IDLE_TIMEOUT"),
			ShutdownTimeout: seconds(v, "SERVER_SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			URL:                v.GetString("DATABASE_URL"),
			MaxConnections:     v.GetInt("DATABASE_MAX_CONNECTIONS"),
			MaxIdleConnections: v.GetInt("DATABASE_MAX_IDLE_CONNECTIONS"),
			ConnMaxLifetime:    seconds(v, "DATABASE_CONN_MAX_LIFETIME"),
			AutoMigrate:        v.GetBool("DATABASE_AUTO_MIGRATE"),
		},
		JWT: JWTConfig{
			Secret:            v.GetString("JWT_SECRET"),
			Issuer:            v.GetString("JWT_ISSUER"),
			AccessTokenExpiry: seconds(v, "JWT_ACCESS_TOKEN_EXPIRY"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			AllowedMethods: splitList(v.GetString("CORS_ALLOWED_METHODS")),
			AllowedHeaders: splitList(v.GetString("CORS_ALLOWED_HEADERS")),
		},
		Redis: RedisConfig{
			URL:              v.GetString("REDIS_URL"),
			PopularRoutesKey: v.GetString("REDIS_POPULAR_ROUTES_KEY"),
			EventsEnabled:    v.GetBool("REDIS_EVENTS_ENABLED"),
		},
		Cron: CronConfig{
			Enabled:       v.GetBool("CRON_ENABLED"),
			AuditSchedule: v.GetString("CRON_AUDIT_SCHEDULE"),
		},
	}

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

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Cron.Enabled && strings.TrimSpace(c.Cron.AuditSchedule) == "" {
		return fmt.Errorf("CRON_AUDIT_SCHEDULE is required when CRON_ENABLED is true")
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Second
}

// splitList splits a comma separated value, dropping empty entries
func splitList(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
