// Package config carga la configuración operativa del engine desde YAML con
// overrides por variables de entorno. El perfil ASPSP (regulatorio) vive en
// su propio archivo y lo maneja internal/profile.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Storage struct {
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MinIdleConns    int    `yaml:"min_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Profile struct {
		Path      string        `yaml:"path"`
		ReloadTTL time.Duration `yaml:"reload_ttl"`
	} `yaml:"profile"`

	Redirect struct {
		// TokenSecret firma los state tokens de los links. Obligatorio si el
		// perfil usa el approach REDIRECT.
		TokenSecret string `yaml:"token_secret"`
	} `yaml:"redirect"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Load lee el YAML, aplica defaults y los overrides de entorno.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Profile.Path == "" {
		c.Profile.Path = "profile.yaml"
	}
	if c.Profile.ReloadTTL == 0 {
		c.Profile.ReloadTTL = 30 * time.Second
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9102"
	}

	// validate string durations
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return nil, err
		}
	}
	if c.Cache.Memory.DefaultTTL != "" {
		if _, err := time.ParseDuration(c.Cache.Memory.DefaultTTL); err != nil {
			return nil, err
		}
	}

	c.applyEnv()
	return &c, nil
}

// applyEnv pisa valores sensibles/operativos con variables de entorno.
func (c *Config) applyEnv() {
	c.Storage.Driver = envStr("SCAFLOW_STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.DSN = envStr("SCAFLOW_STORAGE_DSN", c.Storage.DSN)
	c.Cache.Kind = envStr("SCAFLOW_CACHE_KIND", c.Cache.Kind)
	c.Cache.Redis.Addr = envStr("SCAFLOW_REDIS_ADDR", c.Cache.Redis.Addr)
	c.Cache.Redis.DB = envInt("SCAFLOW_REDIS_DB", c.Cache.Redis.DB)
	c.Profile.Path = envStr("SCAFLOW_PROFILE_PATH", c.Profile.Path)
	c.Redirect.TokenSecret = envStr("SCAFLOW_REDIRECT_TOKEN_SECRET", c.Redirect.TokenSecret)
	c.App.LogLevel = envStr("SCAFLOW_LOG_LEVEL", c.App.LogLevel)
	c.Metrics.Addr = envStr("SCAFLOW_METRICS_ADDR", c.Metrics.Addr)
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
