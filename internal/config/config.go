// Package config provides client configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds client configuration values loaded from file or environment variables.
type Config struct {
	BackendURL         string        `mapstructure:"BACK_END_SERVER_URL"`
	Env                string        `mapstructure:"APP_ENV"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MaxRetries         int           `mapstructure:"MAX_RETRIES"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	SessionStore       string        `mapstructure:"SESSION_STORE"`
	TokenFile          string        `mapstructure:"TOKEN_FILE"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	FormulaCacheTTL    time.Duration `mapstructure:"FORMULA_CACHE_TTL"`
	HistoryDB          string        `mapstructure:"HISTORY_DB"`
	FeatureFlags       string        `mapstructure:"FEATURE_FLAGS"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	TracingEnabled     bool          `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string        `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string        `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64       `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// Session store kinds.
const (
	SessionStoreFile  = "file"
	SessionStoreRedis = "redis"
)

// LoadConfig loads configuration from config.yml, the profile overlay
// config.<APP_ENV>.yml and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	// A missing base file is fine; env and defaults cover everything.
	_ = v.ReadInConfig()

	env := strings.TrimSpace(v.GetString("APP_ENV"))
	if env != "" && env != "development" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("BACK_END_SERVER_URL", "http://localhost:4000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("MAX_RETRIES", 2)
	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("SESSION_STORE", SessionStoreFile)
	v.SetDefault("TOKEN_FILE", ".toolbox-token")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("FORMULA_CACHE_TTL", "10m")
	v.SetDefault("HISTORY_DB", "toolbox-history.db")
	v.SetDefault("FEATURE_FLAGS", "")
	v.SetDefault("LOG_LEVEL", "warn")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.BackendURL = strings.TrimRight(strings.TrimSpace(c.BackendURL), "/")
	c.SessionStore = strings.ToLower(strings.TrimSpace(c.SessionStore))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.TracingExporter = strings.ToLower(strings.TrimSpace(c.TracingExporter))
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and sane.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return errors.New("BACK_END_SERVER_URL is required")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACK_END_SERVER_URL must be an absolute URL, got %q", c.BackendURL)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("MAX_RETRIES must not be negative")
	}
	if c.RateLimitRPS < 0 {
		return errors.New("RATE_LIMIT_RPS must not be negative")
	}
	switch c.SessionStore {
	case SessionStoreFile:
		if c.TokenFile == "" {
			return errors.New("TOKEN_FILE is required when SESSION_STORE is file")
		}
	case SessionStoreRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when SESSION_STORE is redis")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreFile, SessionStoreRedis, c.SessionStore)
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		return errors.New("TRACING_SAMPLE_RATIO must be between 0 and 1")
	}

	if c.IsProduction() {
		if u.Scheme != "https" {
			return errors.New("BACK_END_SERVER_URL must use https in production")
		}
	} else if u.Scheme != "https" && u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		log.Println("WARNING: BACK_END_SERVER_URL is plain http on a non-local host. Tokens are sent in the clear.")
	}

	return nil
}
