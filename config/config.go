package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Payment    PaymentConfig    `mapstructure:"payment"`
	Automation AutomationConfig `mapstructure:"automation"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch"`
	Seed       SeedConfig       `mapstructure:"seed"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

type StorageConfig struct {
	Driver  string        `mapstructure:"driver"` // memory | sqlite
	DSN     string        `mapstructure:"dsn"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// RedisConfig enables the redis idempotency store when Addr is set
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PaymentConfig points at the payment processor; an empty BaseURL uses the simulator
type PaymentConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type AutomationConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Resolution time.Duration `mapstructure:"resolution"`
	Seed       int64         `mapstructure:"seed"`
}

type DispatchConfig struct {
	AutoInterval time.Duration `mapstructure:"auto_interval"`
}

type SeedConfig struct {
	Demo bool `mapstructure:"demo"`
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.dsn", "shophand.db")
	v.SetDefault("storage.timeout", 5*time.Second)
	v.SetDefault("auth.jwt_secret", "shophand_dev_secret")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("payment.base_url", "")
	v.SetDefault("payment.timeout", 10*time.Second)
	v.SetDefault("payment.max_attempts", 3)
	v.SetDefault("automation.enabled", true)
	v.SetDefault("automation.resolution", time.Second)
	v.SetDefault("automation.seed", 0)
	v.SetDefault("dispatch.auto_interval", 0)
	v.SetDefault("seed.demo", true)
}

// LoadConfig loads configuration from an optional config.yaml and environment
// variables prefixed with SHOPHAND_ (SHOPHAND_SERVER_ADDR, ...). path, when not
// empty, names the config file explicitly.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./deploy/")
		v.AddConfigPath("./")
	}

	v.SetEnvPrefix("SHOPHAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("storage.driver must be memory or sqlite, got %q", c.Storage.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must not be empty")
	}
	if c.Payment.MaxAttempts < 1 {
		c.Payment.MaxAttempts = 1
	}
	if c.Automation.Resolution <= 0 {
		c.Automation.Resolution = time.Second
	}
	return nil
}
