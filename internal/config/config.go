package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration. Values come from an optional YAML
// file and are overridden by AUTHGATE_* environment variables. Signing secrets
// and TTLs are handed to the token issuer at construction; nothing reads them
// from ambient state after startup.
type Config struct {
	App struct {
		// dev | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		IdleTimeout     time.Duration `yaml:"idle_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Storage struct {
		DSN             string        `yaml:"dsn"`
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	} `yaml:"storage"`

	JWT struct {
		Issuer        string        `yaml:"issuer"`
		AccessSecret  string        `yaml:"access_secret"`
		RefreshSecret string        `yaml:"refresh_secret"`
		AccessTTL     time.Duration `yaml:"access_ttl"`
		RefreshTTL    time.Duration `yaml:"refresh_ttl"`
	} `yaml:"jwt"`

	Session struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"session"`

	RateLimit struct {
		Burst     int `yaml:"burst"`
		PerSecond int `yaml:"per_second"`
	} `yaml:"rate_limit"`
}

// Default returns the configuration used when neither file nor environment
// provides a value.
func Default() Config {
	var c Config
	c.App.Env = "dev"
	c.App.LogLevel = "info"
	c.Server.Addr = ":8080"
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 15 * time.Second
	c.Server.IdleTimeout = 60 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Storage.MaxOpenConns = 10
	c.Storage.MaxIdleConns = 10
	c.Storage.ConnMaxLifetime = 30 * time.Minute
	c.JWT.Issuer = "authgate"
	c.JWT.AccessTTL = 15 * time.Minute
	c.JWT.RefreshTTL = 7 * 24 * time.Hour
	c.Session.TTL = 2 * time.Hour
	c.RateLimit.Burst = 10
	c.RateLimit.PerSecond = 5
	return c
}

// Load reads the YAML file at path (skipped when path is empty or absent) and
// applies environment overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.JWT.AccessSecret) == "" {
		return fmt.Errorf("config: jwt access secret is required")
	}
	if strings.TrimSpace(c.JWT.RefreshSecret) == "" {
		return fmt.Errorf("config: jwt refresh secret is required")
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return fmt.Errorf("config: access and refresh secrets must differ")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("config: session ttl must be positive")
	}
	return nil
}

func applyEnv(c *Config) {
	setString(&c.App.Env, "AUTHGATE_ENV")
	setString(&c.App.LogLevel, "AUTHGATE_LOG_LEVEL")
	setString(&c.Server.Addr, "AUTHGATE_ADDR")
	setString(&c.Storage.DSN, "AUTHGATE_PG_DSN")
	setInt(&c.Storage.MaxOpenConns, "AUTHGATE_PG_MAX_OPEN_CONNS")
	setInt(&c.Storage.MaxIdleConns, "AUTHGATE_PG_MAX_IDLE_CONNS")
	setString(&c.JWT.Issuer, "AUTHGATE_JWT_ISSUER")
	setString(&c.JWT.AccessSecret, "AUTHGATE_JWT_ACCESS_SECRET")
	setString(&c.JWT.RefreshSecret, "AUTHGATE_JWT_REFRESH_SECRET")
	setDuration(&c.JWT.AccessTTL, "AUTHGATE_JWT_ACCESS_TTL")
	setDuration(&c.JWT.RefreshTTL, "AUTHGATE_JWT_REFRESH_TTL")
	setDuration(&c.Session.TTL, "AUTHGATE_SESSION_TTL")
	setInt(&c.RateLimit.Burst, "AUTHGATE_RATE_BURST")
	setInt(&c.RateLimit.PerSecond, "AUTHGATE_RATE_PER_SECOND")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
		}
	}
}
