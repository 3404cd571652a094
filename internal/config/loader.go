package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from files and environment variables.
// Precedence: environment variables > config file > defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/token-price")

	v.AutomaticEnv()
	v.SetEnvPrefix("TOKEN_PRICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file found, defaults and env vars are enough
	}

	cfg := GetDefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// bindEnvVars binds specific environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	envBindings := map[string]string{
		"server.port":                    "TOKEN_PRICE_SERVER_PORT",
		"server.shutdown_timeout":        "TOKEN_PRICE_SERVER_SHUTDOWN_TIMEOUT",
		"cache.backend":                  "TOKEN_PRICE_CACHE_BACKEND",
		"cache.ttl":                      "TOKEN_PRICE_CACHE_TTL",
		"cache.redis.addr":               "TOKEN_PRICE_CACHE_REDIS_ADDR",
		"cache.redis.password":           "TOKEN_PRICE_CACHE_REDIS_PASSWORD",
		"cache.redis.db":                 "TOKEN_PRICE_CACHE_REDIS_DB",
		"store.backend":                  "TOKEN_PRICE_STORE_BACKEND",
		"store.postgres_dsn":             "TOKEN_PRICE_STORE_POSTGRES_DSN",
		"provider.backend":               "TOKEN_PRICE_PROVIDER_BACKEND",
		"provider.base_url":              "TOKEN_PRICE_PROVIDER_BASE_URL",
		"provider.api_key":               "TOKEN_PRICE_PROVIDER_API_KEY",
		"provider.timeout":               "TOKEN_PRICE_PROVIDER_TIMEOUT",
		"provider.rate_limit_capacity":   "TOKEN_PRICE_PROVIDER_RATE_LIMIT_CAPACITY",
		"provider.rate_limit_per_second": "TOKEN_PRICE_PROVIDER_RATE_LIMIT_PER_SECOND",
		"backfill.workers":               "TOKEN_PRICE_BACKFILL_WORKERS",
		"backfill.batch_size":            "TOKEN_PRICE_BACKFILL_BATCH_SIZE",
		"backfill.batch_delay":           "TOKEN_PRICE_BACKFILL_BATCH_DELAY",
		"backfill.poll_interval":         "TOKEN_PRICE_BACKFILL_POLL_INTERVAL",
		"logging.level":                  "TOKEN_PRICE_LOGGING_LEVEL",
	}

	for key, envVar := range envBindings {
		_ = v.BindEnv(key, envVar)
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	switch cfg.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	switch cfg.Store.Backend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	switch cfg.Provider.Backend {
	case "mock", "alchemy":
	default:
		return fmt.Errorf("unknown provider backend %q", cfg.Provider.Backend)
	}
	if cfg.Provider.Backend == "alchemy" && cfg.Provider.APIKey == "" {
		return fmt.Errorf("provider api_key is required for the alchemy backend")
	}
	if cfg.Backfill.Workers <= 0 {
		return fmt.Errorf("backfill workers must be positive, got %d", cfg.Backfill.Workers)
	}
	if cfg.Backfill.BatchSize <= 0 {
		return fmt.Errorf("backfill batch_size must be positive, got %d", cfg.Backfill.BatchSize)
	}
	return nil
}
