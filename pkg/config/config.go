package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ratewatch/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Logging     struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Postgres struct {
		Host        string        `yaml:"host"`
		Port        int           `yaml:"port"`
		Database    string        `yaml:"database"`
		User        string        `yaml:"user"`
		Password    string        `yaml:"password"`
		SSLMode     string        `yaml:"ssl_mode"`
		MaxOpen     int           `yaml:"max_open_conns"`
		MaxIdle     int           `yaml:"max_idle_conns"`
		MaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Binance struct {
		BaseURL      string        `yaml:"base_url"`
		Timeout      time.Duration `yaml:"timeout"`
		MaxAttempts  int           `yaml:"max_attempts"`
		BackoffDelay time.Duration `yaml:"backoff_delay"`
	} `yaml:"binance"`
	Cache struct {
		RecentTTL     time.Duration `yaml:"recent_ttl"`
		HistoricalTTL time.Duration `yaml:"historical_ttl"`
		SnapshotTTL   time.Duration `yaml:"snapshot_ttl"`
	} `yaml:"cache"`
	Ingestion struct {
		Schedule            string        `yaml:"schedule"`
		FreshnessThreshold  time.Duration `yaml:"freshness_threshold"`
		TriggerBurst        float64       `yaml:"trigger_burst"`
		TriggerRefillPerSec float64       `yaml:"trigger_refill_per_sec"`
	} `yaml:"ingestion"`
	Retention struct {
		Enabled  bool          `yaml:"enabled"`
		MaxAge   time.Duration `yaml:"max_age"`
		Schedule string        `yaml:"schedule"`
	} `yaml:"retention"`
	Kafka struct {
		Enabled    bool          `yaml:"enabled"`
		Brokers    []string      `yaml:"brokers"`
		Topic      string        `yaml:"topic"`
		GroupID    string        `yaml:"group_id"`
		Workers    int           `yaml:"workers"`
		RetryMax   int           `yaml:"retry_max"`
		BackoffMin time.Duration `yaml:"backoff_min"`
		BackoffMax time.Duration `yaml:"backoff_max"`
		LogTopic   string        `yaml:"log_topic"`
	} `yaml:"kafka"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		c.Binance.BaseURL = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Binance.MaxAttempts == 0 {
		c.Binance.MaxAttempts = 3
	}
	if c.Binance.BackoffDelay == 0 {
		c.Binance.BackoffDelay = time.Second
	}
	if c.Binance.Timeout == 0 {
		c.Binance.Timeout = 10 * time.Second
	}
	if c.Cache.RecentTTL == 0 {
		c.Cache.RecentTTL = 5 * time.Minute
	}
	if c.Cache.HistoricalTTL == 0 {
		c.Cache.HistoricalTTL = time.Hour
	}
	if c.Cache.SnapshotTTL == 0 {
		c.Cache.SnapshotTTL = time.Minute
	}
	if c.Ingestion.FreshnessThreshold == 0 {
		c.Ingestion.FreshnessThreshold = 10 * time.Minute
	}
	if c.Ingestion.Schedule == "" {
		c.Ingestion.Schedule = "@every 1m"
	}
	if c.Ingestion.TriggerBurst == 0 {
		c.Ingestion.TriggerBurst = 5
	}
	if c.Ingestion.TriggerRefillPerSec == 0 {
		c.Ingestion.TriggerRefillPerSec = 1
	}
	if c.Retention.Schedule == "" {
		c.Retention.Schedule = "@daily"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "ratewatch.ingest"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "ratewatch"
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Binance.BaseURL == "" {
		return fmt.Errorf("binance.base_url is required")
	}
	if c.Postgres.Host == "" {
		return fmt.Errorf("postgres.host is required")
	}
	if c.Postgres.Database == "" {
		return fmt.Errorf("postgres.database is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Retention.Enabled && c.Retention.MaxAge <= 0 {
		return fmt.Errorf("retention.max_age must be positive when retention is enabled")
	}
	return nil
}
