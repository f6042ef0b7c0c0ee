/**
 * @description
 * Configuration management for the WishChain backend. Settings come from
 * environment variables (optionally pre-loaded from a .env file by main) and
 * are bound onto Config through Viper.
 *
 * @dependencies
 * - github.com/spf13/viper: Environment binding, defaults and unmarshalling.
 */
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort              string `mapstructure:"SERVER_PORT"`
	DatabaseURL             string `mapstructure:"DATABASE_URL"`
	RedisURL                string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix    string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL             string `mapstructure:"RABBITMQ_URL"`
	EventsExchange          string `mapstructure:"EVENTS_EXCHANGE"`
	SessionSigningKey       string `mapstructure:"SESSION_SIGNING_KEY"`
	SessionTTLHours         int    `mapstructure:"SESSION_TTL_HOURS"`
	SessionShortTTLHours    int    `mapstructure:"SESSION_SHORT_TTL_HOURS"`
	CORSAllowedOrigins      string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	GrantRateLimitPerMinute int    `mapstructure:"GRANT_RATE_LIMIT_PER_MINUTE"`
	WishExpiryDays          int    `mapstructure:"WISH_EXPIRY_DAYS"`
	WishExpirySchedule      string `mapstructure:"WISH_EXPIRY_SCHEDULE"`
	OutboxPollIntervalMS    int    `mapstructure:"OUTBOX_POLL_INTERVAL_MS"`
}

var boundKeys = []string{
	"SERVER_PORT",
	"DATABASE_URL",
	"REDIS_URL",
	"REDIS_RATE_LIMIT_PREFIX",
	"RABBITMQ_URL",
	"EVENTS_EXCHANGE",
	"SESSION_SIGNING_KEY",
	"SESSION_TTL_HOURS",
	"SESSION_SHORT_TTL_HOURS",
	"CORS_ALLOWED_ORIGINS",
	"GRANT_RATE_LIMIT_PER_MINUTE",
	"WISH_EXPIRY_DAYS",
	"WISH_EXPIRY_SCHEDULE",
	"OUTBOX_POLL_INTERVAL_MS",
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "wishchain:rate_limit")
	viper.SetDefault("EVENTS_EXCHANGE", "wishchain_events")
	viper.SetDefault("SESSION_TTL_HOURS", 24*14)
	viper.SetDefault("SESSION_SHORT_TTL_HOURS", 12)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "https://*,http://*")
	viper.SetDefault("GRANT_RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("WISH_EXPIRY_DAYS", 90)
	viper.SetDefault("WISH_EXPIRY_SCHEDULE", "0 * * * *") // Every hour, on the hour.
	viper.SetDefault("OUTBOX_POLL_INTERVAL_MS", 1200)
	viper.AutomaticEnv()

	for _, key := range boundKeys {
		_ = viper.BindEnv(key)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RabbitMQURL = strings.TrimSpace(config.RabbitMQURL)
	config.SessionSigningKey = strings.TrimSpace(config.SessionSigningKey)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "wishchain:rate_limit"
	}
	config.EventsExchange = strings.TrimSpace(config.EventsExchange)
	if config.EventsExchange == "" {
		config.EventsExchange = "wishchain_events"
	}
	if config.SessionShortTTLHours <= 0 || config.SessionShortTTLHours > config.SessionTTLHours {
		config.SessionShortTTLHours = config.SessionTTLHours
	}

	if config.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if config.SessionSigningKey == "" {
		return nil, errors.New("SESSION_SIGNING_KEY is required")
	}
	if config.SessionTTLHours <= 0 {
		return nil, errors.New("SESSION_TTL_HOURS must be positive")
	}

	return &config, nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas, dropping blanks.
func (c Config) AllowedOrigins() []string {
	origins := []string{}
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
