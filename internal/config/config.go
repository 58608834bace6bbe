// Package config loads CLI settings from the environment and an optional .env file
// using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	goTutor "github.com/MrEthical07/goTutor"
	"github.com/MrEthical07/goTutor/session"
)

// Storage kinds accepted by TUTOR_STORAGE.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

// Config holds CLI configuration loaded from the environment.
type Config struct {
	// BaseURL is the backend origin (e.g. https://api.example.com).
	BaseURL string `mapstructure:"TUTOR_BASE_URL"`
	// Storage selects the session backend: memory, file or redis.
	Storage string `mapstructure:"TUTOR_STORAGE"`
	// StoragePath is the session document for file storage. Defaults under the user
	// config directory.
	StoragePath string `mapstructure:"TUTOR_STORAGE_PATH"`
	RedisAddr   string `mapstructure:"TUTOR_REDIS_ADDR"`
	RedisPrefix string `mapstructure:"TUTOR_REDIS_PREFIX"`

	TokenTTL       time.Duration `mapstructure:"TUTOR_TOKEN_TTL"`
	RenewMargin    time.Duration `mapstructure:"TUTOR_RENEW_MARGIN"`
	CheckInterval  time.Duration `mapstructure:"TUTOR_CHECK_INTERVAL"`
	RefreshTimeout time.Duration `mapstructure:"TUTOR_REFRESH_TIMEOUT"`

	UserAgent string `mapstructure:"TUTOR_USER_AGENT"`
}

// Load reads envFile (".env" when empty) if present, then the environment. Environment
// variables override the file.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	v := viper.New()

	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing file is fine

	v.AutomaticEnv()

	def := goTutor.DefaultConfig()
	v.SetDefault("TUTOR_BASE_URL", def.BaseURL)
	v.SetDefault("TUTOR_STORAGE", StorageFile)
	v.SetDefault("TUTOR_STORAGE_PATH", "")
	v.SetDefault("TUTOR_REDIS_ADDR", "localhost:6379")
	v.SetDefault("TUTOR_REDIS_PREFIX", "gt")
	v.SetDefault("TUTOR_TOKEN_TTL", def.Refresh.TokenTTL.String())
	v.SetDefault("TUTOR_RENEW_MARGIN", def.Refresh.RenewMargin.String())
	v.SetDefault("TUTOR_CHECK_INTERVAL", def.Refresh.CheckInterval.String())
	v.SetDefault("TUTOR_REFRESH_TIMEOUT", def.Refresh.Timeout.String())
	v.SetDefault("TUTOR_USER_AGENT", def.HTTP.UserAgent)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	switch cfg.Storage {
	case StorageMemory, StorageFile:
	case StorageRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("config: TUTOR_REDIS_ADDR must be set when TUTOR_STORAGE=redis")
		}
	default:
		return nil, fmt.Errorf("config: TUTOR_STORAGE must be memory, file or redis, got %q", cfg.Storage)
	}

	sc := cfg.Session()
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Session returns the manager configuration these settings describe.
func (c *Config) Session() goTutor.Config {
	cfg := goTutor.DefaultConfig()
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	cfg.Refresh.TokenTTL = c.TokenTTL
	cfg.Refresh.RenewMargin = c.RenewMargin
	cfg.Refresh.CheckInterval = c.CheckInterval
	cfg.Refresh.Timeout = c.RefreshTimeout
	if c.UserAgent != "" {
		cfg.HTTP.UserAgent = c.UserAgent
	}
	return cfg
}

// OpenBackend creates the configured session backend. The returned func releases it.
func (c *Config) OpenBackend() (session.Backend, func() error, error) {
	noop := func() error { return nil }
	switch c.Storage {
	case StorageMemory:
		return session.NewMemoryBackend(), noop, nil
	case StorageRedis:
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		return session.NewRedisBackend(client, c.RedisPrefix), client.Close, nil
	default:
		path := c.StoragePath
		if path == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, nil, fmt.Errorf("config: resolve session path: %w", err)
			}
			path = filepath.Join(dir, "gotutor", "session.json")
		}
		return session.NewFileBackend(path), noop, nil
	}
}
