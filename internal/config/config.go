// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	Auth      AuthConfig
	Stripe    StripeConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds PostgreSQL connection settings. URL, when set, wins
// over the individual parts.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URLValue string
	Debug    bool
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool
	Migrations bool
	BaseURL    string
	LogLevel   string
}

// AuthConfig holds the identity provider's session token settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
	SignInURL string
	// LeewaySeconds tolerates clock skew with the identity provider.
	LeewaySeconds int
}

// StripeConfig holds payment provider credentials and the point price.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	UnitAmount    int64 // øre
}

// RateLimitConfig holds limiter rates in ulule format ("100-M"). Empty
// disables a limiter.
type RateLimitConfig struct {
	API     string
	Webhook string
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	if d.URLValue != "" {
		return d.URLValue
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	if d.URLValue != "" {
		return d.URLValue
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables, and from the file
// named by CONFIG_FILE when set. It uses sensible defaults for local
// development.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		v.SetConfigFile(p)
		_ = v.ReadInConfig()
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv(v, "PORT", "8080"),
			ReadTimeout:  getEnvInt(v, "SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt(v, "SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvInt(v, "SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:     getEnv(v, "DB_HOST", "localhost"),
			Port:     getEnvInt(v, "DB_PORT", 5432),
			User:     getEnv(v, "DB_USER", "faktura"),
			Password: getEnv(v, "DB_PASSWORD", "faktura"),
			DBName:   getEnv(v, "DB_NAME", "faktura"),
			SSLMode:  getEnv(v, "DB_SSLMODE", "disable"),
			URLValue: getEnv(v, "DATABASE_URL", ""),
			Debug:    getEnvBool(v, "DB_DEBUG", false),
		},
		App: AppConfig{
			Dev:        getEnvBool(v, "DEV", true),
			Migrations: getEnvBool(v, "MIGRATIONS", false),
			BaseURL:    getEnv(v, "BASE_URL", "http://localhost:8080"),
			LogLevel:   getEnv(v, "LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv(v, "AUTH_JWT_SECRET", ""),
			Issuer:        getEnv(v, "AUTH_ISSUER", ""),
			Audience:      getEnv(v, "AUTH_AUDIENCE", ""),
			SignInURL:     getEnv(v, "AUTH_SIGN_IN_URL", "/sign-in"),
			LeewaySeconds: getEnvInt(v, "AUTH_LEEWAY_SECONDS", 30),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv(v, "STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv(v, "STRIPE_WEBHOOK_SECRET", ""),
			Currency:      getEnv(v, "STRIPE_CURRENCY", "nok"),
			UnitAmount:    int64(getEnvInt(v, "STRIPE_UNIT_AMOUNT", 600)),
		},
		RateLimit: RateLimitConfig{
			API:     getEnv(v, "RATE_LIMIT_API", "300-M"),
			Webhook: getEnv(v, "RATE_LIMIT_WEBHOOK", "60-M"),
		},
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if !c.App.Dev {
		if c.Stripe.SecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
		}
		if c.Stripe.WebhookSecret == "" {
			errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
		}
	}
	return errors.Join(errs...)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(v *viper.Viper, key, defaultValue string) string {
	if value := strings.TrimSpace(v.GetString(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(v *viper.Viper, key string, defaultValue int) int {
	if !v.IsSet(key) || v.GetString(key) == "" {
		return defaultValue
	}
	if i := v.GetInt(key); i != 0 || v.GetString(key) == "0" {
		return i
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(v *viper.Viper, key string, defaultValue bool) bool {
	value := strings.ToLower(v.GetString(key))
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
