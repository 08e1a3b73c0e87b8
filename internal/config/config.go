// Package config loads server configuration from an optional equb.yaml file
// and EQUB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ConfigName = "equb"
	ConfigType = "yaml"
	EnvPrefix  = "EQUB"
)

// Config is the server configuration.
type Config struct {
	Port     int    `mapstructure:"port"`
	DBPath   string `mapstructure:"db_path"`
	LogLevel string `mapstructure:"log_level"`

	Sweep  SweepConfig  `mapstructure:"sweep"`
	Notify NotifyConfig `mapstructure:"notify"`
	Auth   AuthConfig   `mapstructure:"auth"`
	CORS   CORSConfig   `mapstructure:"cors"`
}

// SweepConfig controls the deadline enforcer.
type SweepConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// NotifyConfig controls outbound notifications.
type NotifyConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig holds the JWT settings.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// CORSConfig lists the browser origins allowed to call the API. "*" allows all.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "./data/equb.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("sweep.interval", time.Hour)
	v.SetDefault("sweep.timeout", 2*time.Minute)
	v.SetDefault("notify.timeout", 5*time.Second)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Load reads configuration from equb.yaml in dirs (if present) and the
// environment. EQUB_SWEEP_INTERVAL overrides sweep.interval, and so on.
func Load(dirs ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(ConfigName)
	v.SetConfigType(ConfigType)
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if len(dirs) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
			slog.Debug("No config file found, using defaults and environment", "name", ConfigName)
		} else {
			slog.Info("Loaded config file", "path", v.ConfigFileUsed())
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.Sweep.Interval <= 0 {
		errs = append(errs, fmt.Errorf("sweep.interval must be positive, got %s", c.Sweep.Interval))
	}
	if c.Sweep.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("sweep.timeout must be positive, got %s", c.Sweep.Timeout))
	}
	if c.Notify.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("notify.timeout must be positive, got %s", c.Notify.Timeout))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL))
	}
	return errors.Join(errs...)
}
