// Package config provides a reusable viper-backed loader for the service's
// configuration files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"fuelstreams/pkg/utils"
)

// Config is the unified configuration surface of spec §6.4.
type Config struct {
	DB struct {
		URL              string        `mapstructure:"url" json:"url"`
		PoolSize         int           `mapstructure:"pool_size" json:"pool_size"`
		MinConnections   int           `mapstructure:"min_connections" json:"min_connections"`
		AcquireTimeout   time.Duration `mapstructure:"acquire_timeout" json:"acquire_timeout"`
		StatementTimeout time.Duration `mapstructure:"statement_timeout" json:"statement_timeout"`
		IdleTimeout      time.Duration `mapstructure:"idle_timeout" json:"idle_timeout"`
	} `mapstructure:"db" json:"db"`

	Broker struct {
		URL              string `mapstructure:"url" json:"url"`
		ClientName       string `mapstructure:"client_name" json:"client_name"`
		ConnectTimeoutMS int    `mapstructure:"connect_timeout_ms" json:"connect_timeout_ms"`
		MaxReconnects    int    `mapstructure:"max_reconnects" json:"max_reconnects"`
	} `mapstructure:"broker" json:"broker"`

	Stream struct {
		ThrottleHistoricalMS int `mapstructure:"throttle_historical_ms" json:"throttle_historical_ms"`
		ThrottleLiveMS       int `mapstructure:"throttle_live_ms" json:"throttle_live_ms"`
	} `mapstructure:"stream" json:"stream"`

	ExecutorRetry struct {
		MaxAttempts    int `mapstructure:"max_attempts" json:"max_attempts"`
		InitialDelayMS int `mapstructure:"initial_delay_ms" json:"initial_delay_ms"`
		TimeoutMS      int `mapstructure:"timeout_ms" json:"timeout_ms"`
	} `mapstructure:"executor_retry" json:"executor_retry"`

	WS struct {
		PingIntervalMS     int `mapstructure:"ping_interval_ms" json:"ping_interval_ms"`
		HeartbeatTimeoutMS int `mapstructure:"heartbeat_timeout_ms" json:"heartbeat_timeout_ms"`
		MaxWorkers         int `mapstructure:"max_workers" json:"max_workers"`
	} `mapstructure:"ws" json:"ws"`

	Auth struct {
		CacheCapacity int `mapstructure:"cache_capacity" json:"cache_capacity"`
		RateWindowMS  int `mapstructure:"rate_window_ms" json:"rate_window_ms"`
	} `mapstructure:"auth" json:"auth"`

	Namespace string `mapstructure:"namespace" json:"namespace"`

	// Compression selects the packet value's compression strategy:
	// "zstd" (default) or "none" (SPEC_FULL.md supplemented feature 3).
	Compression string `mapstructure:"compression" json:"compression"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

func setDefaults() {
	viper.SetDefault("db.pool_size", 100)
	viper.SetDefault("db.min_connections", 25)
	viper.SetDefault("db.acquire_timeout", 10*time.Second)
	viper.SetDefault("db.statement_timeout", 30*time.Second)
	viper.SetDefault("db.idle_timeout", 180*time.Second)

	viper.SetDefault("broker.client_name", "fuelstreams")
	viper.SetDefault("broker.connect_timeout_ms", 5000)
	viper.SetDefault("broker.max_reconnects", -1)

	viper.SetDefault("stream.throttle_historical_ms", 5)
	viper.SetDefault("stream.throttle_live_ms", 0)

	viper.SetDefault("executor_retry.max_attempts", 3)
	viper.SetDefault("executor_retry.initial_delay_ms", 100)
	viper.SetDefault("executor_retry.timeout_ms", 30000)

	viper.SetDefault("ws.ping_interval_ms", 5000)
	viper.SetDefault("ws.heartbeat_timeout_ms", 10000)
	viper.SetDefault("ws.max_workers", 8)

	viper.SetDefault("auth.cache_capacity", 4096)
	viper.SetDefault("auth.rate_window_ms", 60000)

	viper.SetDefault("logging.level", "info")

	viper.SetDefault("compression", "zstd")
}

var envKeyReplacer = strings.NewReplacer(".", "_")

// Load reads configuration files and merges any environment-specific
// overrides. The resulting configuration is stored in AppConfig and
// returned. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	setDefaults()

	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
			}
		}
	}

	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the FUELSTREAMS_ENV environment
// variable to select the override file.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("FUELSTREAMS_ENV", ""))
}
