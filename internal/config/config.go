package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig
	Store     StoreConfig
	Seed      SeedConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Logger    LoggerConfig
}

// AppConfig holds configuration for the HTTP server
type AppConfig struct {
	HTTPPort               string `mapstructure:"HTTP_PORT"`
	ShutdownTimeoutSeconds int    `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
	CollationLocale        string `mapstructure:"COLLATION_LOCALE"`
}

// StoreConfig holds configuration for the JSON file store
type StoreConfig struct {
	Path  string `mapstructure:"STORE_PATH"`
	Watch bool   `mapstructure:"STORE_WATCH"`
}

// SeedConfig holds configuration for the seed generator
type SeedConfig struct {
	Count int    `mapstructure:"SEED_COUNT"`
	Value uint64 `mapstructure:"SEED_VALUE"` // 0 picks a random seed
}

// RateLimitConfig holds configuration for the Redis token bucket limiter
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"RATE_LIMIT_ENABLED"`
	RequestsPerSecond float64 `mapstructure:"RATE_LIMIT_RPS"`
	BurstCapacity     int     `mapstructure:"RATE_LIMIT_BURST"`
}

// RedisConfig holds configuration for Redis
type RedisConfig struct {
	Host        string `mapstructure:"REDIS_HOST"`
	Port        string `mapstructure:"REDIS_PORT"`
	Password    string `mapstructure:"REDIS_PASSWORD"`
	DB          int    `mapstructure:"REDIS_DB"`
	MaxRetries  int    `mapstructure:"REDIS_MAX_RETRIES"`
	PoolSize    int    `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConn int    `mapstructure:"REDIS_MIN_IDLE_CONN"`
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	Level          string `mapstructure:"LOG_LEVEL"`
	Format         string `mapstructure:"LOG_FORMAT"`
	OutputPath     string `mapstructure:"LOG_OUTPUT_PATH"`
	EnableSampling bool   `mapstructure:"LOG_ENABLE_SAMPLING"`
	ServiceName    string `mapstructure:"SERVICE_NAME"`
	ServiceVersion string `mapstructure:"SERVICE_VERSION"`
}

// LoadConfig reads configuration from app.env in path and from environment
// variables. Values bound to command-line flags take precedence over both.
func LoadConfig(path string) (*Config, error) {
	setDefaults()

	viper.AddConfigPath(path)
	viper.SetConfigName("app") // Look for app.env
	viper.SetConfigType("env")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if we have env vars
	}

	var config Config

	config.App.HTTPPort = viper.GetString("HTTP_PORT")
	config.App.ShutdownTimeoutSeconds = viper.GetInt("SHUTDOWN_TIMEOUT_SECONDS")
	config.App.CollationLocale = viper.GetString("COLLATION_LOCALE")

	config.Store.Path = viper.GetString("STORE_PATH")
	config.Store.Watch = viper.GetBool("STORE_WATCH")

	config.Seed.Count = viper.GetInt("SEED_COUNT")
	config.Seed.Value = viper.GetUint64("SEED_VALUE")

	config.RateLimit.Enabled = viper.GetBool("RATE_LIMIT_ENABLED")
	config.RateLimit.RequestsPerSecond = viper.GetFloat64("RATE_LIMIT_RPS")
	config.RateLimit.BurstCapacity = viper.GetInt("RATE_LIMIT_BURST")

	config.Redis.Host = viper.GetString("REDIS_HOST")
	config.Redis.Port = viper.GetString("REDIS_PORT")
	config.Redis.Password = viper.GetString("REDIS_PASSWORD")
	config.Redis.DB = viper.GetInt("REDIS_DB")
	config.Redis.MaxRetries = viper.GetInt("REDIS_MAX_RETRIES")
	config.Redis.PoolSize = viper.GetInt("REDIS_POOL_SIZE")
	config.Redis.MinIdleConn = viper.GetInt("REDIS_MIN_IDLE_CONN")

	config.Logger.Level = viper.GetString("LOG_LEVEL")
	config.Logger.Format = viper.GetString("LOG_FORMAT")
	config.Logger.OutputPath = viper.GetString("LOG_OUTPUT_PATH")
	config.Logger.EnableSampling = viper.GetBool("LOG_ENABLE_SAMPLING")
	config.Logger.ServiceName = viper.GetString("SERVICE_NAME")
	config.Logger.ServiceVersion = viper.GetString("SERVICE_VERSION")

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("HTTP_PORT", "3000")
	viper.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)
	viper.SetDefault("COLLATION_LOCALE", "en")

	viper.SetDefault("STORE_PATH", "db.json")
	viper.SetDefault("STORE_WATCH", false)

	viper.SetDefault("SEED_COUNT", 60)
	viper.SetDefault("SEED_VALUE", 0)

	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_RPS", 10.0)
	viper.SetDefault("RATE_LIMIT_BURST", 20)

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_MAX_RETRIES", 3)
	viper.SetDefault("REDIS_POOL_SIZE", 10)
	viper.SetDefault("REDIS_MIN_IDLE_CONN", 2)

	// Logger defaults
	env := viper.GetString("APP_ENV")
	if env == "production" {
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("LOG_FORMAT", "json")
		viper.SetDefault("LOG_ENABLE_SAMPLING", true)
	} else {
		viper.SetDefault("LOG_LEVEL", "debug")
		viper.SetDefault("LOG_FORMAT", "console")
		viper.SetDefault("LOG_ENABLE_SAMPLING", false)
	}
	viper.SetDefault("LOG_OUTPUT_PATH", "stdout")
	viper.SetDefault("SERVICE_NAME", "json-user-service")
	viper.SetDefault("SERVICE_VERSION", "1.0.0")
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.App.HTTPPort); err != nil || port < 0 || port > 65535 {
		problems = append(problems, fmt.Sprintf("HTTP_PORT %q is not a valid port", c.App.HTTPPort))
	}
	if c.App.ShutdownTimeoutSeconds < 0 {
		problems = append(problems, "SHUTDOWN_TIMEOUT_SECONDS must not be negative")
	}
	if _, err := language.Parse(c.App.CollationLocale); err != nil {
		problems = append(problems, fmt.Sprintf("COLLATION_LOCALE %q is not a valid language tag", c.App.CollationLocale))
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		problems = append(problems, "STORE_PATH is required")
	}
	if c.Seed.Count < 1 {
		problems = append(problems, "SEED_COUNT must be at least 1")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			problems = append(problems, "RATE_LIMIT_RPS must be positive")
		}
		if c.RateLimit.BurstCapacity < 1 {
			problems = append(problems, "RATE_LIMIT_BURST must be at least 1")
		}
		if c.Redis.Host == "" || c.Redis.Port == "" {
			problems = append(problems, "REDIS_HOST and REDIS_PORT are required when rate limiting is enabled")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// HTTPAddress returns the listen address for the HTTP server
func (c *AppConfig) HTTPAddress() string {
	return ":" + c.HTTPPort
}
