package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	API struct {
		BaseURL            string  `yaml:"base_url" validate:"required,url"`
		TimeoutSeconds     int     `yaml:"timeout_seconds" validate:"min=0"`
		CacheTTLSeconds    int     `yaml:"cache_ttl_seconds" validate:"min=0"`
		RateLimitPerSecond float64 `yaml:"rate_limit_per_second" validate:"min=0"`
		RateBurst          int     `yaml:"rate_burst" validate:"min=0"`
		ShareRefresh       *bool   `yaml:"share_refresh"`
	} `yaml:"api"`

	Storage struct {
		Driver              string `yaml:"driver" validate:"oneof=file sqlite redis memory"`
		Path                string `yaml:"path"`
		Namespace           string `yaml:"namespace"`
		FallbackPath        string `yaml:"fallback_path"`
		BackupDir           string `yaml:"backup_dir"`
		BackupRetentionDays int    `yaml:"backup_retention_days" validate:"min=0"`
	} `yaml:"storage"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Bookings struct {
		PageSize int `yaml:"page_size" validate:"min=1,max=100"`
	} `yaml:"bookings"`

	Facilities struct {
		DetailConcurrency int `yaml:"detail_concurrency" validate:"min=1"`
	} `yaml:"facilities"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

// Load reads the YAML config at path, applies defaults and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML config data. ${ENV_VAR} placeholders are expanded first.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Storage.Driver == "redis" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("invalid config: storage.driver redis requires redis.address")
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = 10
	}
	if c.API.ShareRefresh == nil {
		share := true
		c.API.ShareRefresh = &share
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	if c.Storage.Path == "" {
		switch c.Storage.Driver {
		case "sqlite":
			c.Storage.Path = "data/booking.db"
		default:
			c.Storage.Path = "data/storage"
		}
	}
	if c.Storage.BackupDir == "" {
		c.Storage.BackupDir = "backups"
	}
	if c.Storage.Namespace == "" {
		c.Storage.Namespace = "booking"
	}
	if c.Bookings.PageSize == 0 {
		c.Bookings.PageSize = 10
	}
	if c.Facilities.DetailConcurrency == 0 {
		c.Facilities.DetailConcurrency = 4
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) BackupRetention() time.Duration {
	return time.Duration(c.Storage.BackupRetentionDays) * 24 * time.Hour
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

// SharedRefresh reports whether concurrent 401s share one refresh call.
func (c *Config) SharedRefresh() bool {
	return c.API.ShareRefresh == nil || *c.API.ShareRefresh
}
