package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the dev API settings, read from config.devapi.yml and the
// environment.
type Config struct {
	Port      string `mapstructure:"PORT"`
	JWTSecret string `mapstructure:"JWT_SECRET"`
	RedisURL  string `mapstructure:"DEVAPI_REDIS_URL"`
	Seed      int64  `mapstructure:"SEED"`
	SeedUsers int    `mapstructure:"SEED_USERS"`
	SeedPosts int    `mapstructure:"SEED_POSTS"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	Service   string `mapstructure:"SERVICE_NAME"`
}

// LoadConfig reads the dev API configuration. A missing file is fine.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("config.devapi")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config.devapi.yml: %w", err)
		}
	}

	v.SetDefault("PORT", "4000")
	v.SetDefault("JWT_SECRET", "toolbox-dev-secret")
	v.SetDefault("DEVAPI_REDIS_URL", "")
	v.SetDefault("SEED", 42)
	v.SetDefault("SEED_USERS", 5)
	v.SetDefault("SEED_POSTS", 12)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVICE_NAME", "toolbox-devapi")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.Port = strings.TrimPrefix(strings.TrimSpace(cfg.Port), ":")
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values New relies on.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.SeedUsers < 0 || c.SeedPosts < 0 {
		return errors.New("SEED_USERS and SEED_POSTS must not be negative")
	}
	if c.SeedPosts > 0 && c.SeedUsers == 0 {
		return errors.New("SEED_POSTS needs at least one seeded user")
	}
	return nil
}
