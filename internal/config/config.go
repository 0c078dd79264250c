// Copyright 2025 James Ross
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Redis struct {
	Addr               string        `mapstructure:"addr"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	DB                 int           `mapstructure:"db"`
	PoolSizeMultiplier int           `mapstructure:"pool_size_multiplier"`
	MinIdleConns       int           `mapstructure:"min_idle_conns"`
	DialTimeout        time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
}

type Worker struct {
	DefaultConcurrency int           `mapstructure:"default_concurrency"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
}

type Cron struct {
	EvaluationInterval time.Duration `mapstructure:"evaluation_interval"`
	DefaultTZ          string        `mapstructure:"default_tz"`
}

// Backend selects which backend.Backend implementation the runtime
// wires up: "memory" or "redis".
type Backend struct {
	Kind string `mapstructure:"kind"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type ObservabilityConfig struct {
	MetricsPort int           `mapstructure:"metrics_port"`
	LogLevel    string        `mapstructure:"log_level"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

type Config struct {
	Service       string              `mapstructure:"service"`
	Environment   string              `mapstructure:"environment"`
	Backend       Backend             `mapstructure:"backend"`
	Redis         Redis               `mapstructure:"redis"`
	Worker        Worker              `mapstructure:"worker"`
	Cron          Cron                `mapstructure:"cron"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

func defaultConfig() *Config {
	return &Config{
		Service:     "igniter-jobs",
		Environment: "development",
		Backend:     Backend{Kind: "memory"},
		Redis: Redis{
			Addr:               "localhost:6379",
			PoolSizeMultiplier: 10,
			MinIdleConns:       5,
			DialTimeout:        5 * time.Second,
			ReadTimeout:        3 * time.Second,
			WriteTimeout:       3 * time.Second,
			MaxRetries:         3,
		},
		Worker: Worker{
			DefaultConcurrency: 4,
			PollInterval:       50 * time.Millisecond,
		},
		Cron: Cron{
			EvaluationInterval: 1 * time.Second,
			DefaultTZ:          "UTC",
		},
		Observability: ObservabilityConfig{
			MetricsPort: 9090,
			LogLevel:    "info",
			Tracing:     TracingConfig{Enabled: false},
		},
	}
}

// Load reads configuration from a YAML file plus environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("IGNITER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	v.SetDefault("service", def.Service)
	v.SetDefault("environment", def.Environment)
	v.SetDefault("backend.kind", def.Backend.Kind)

	v.SetDefault("redis.addr", def.Redis.Addr)
	v.SetDefault("redis.pool_size_multiplier", def.Redis.PoolSizeMultiplier)
	v.SetDefault("redis.min_idle_conns", def.Redis.MinIdleConns)
	v.SetDefault("redis.dial_timeout", def.Redis.DialTimeout)
	v.SetDefault("redis.read_timeout", def.Redis.ReadTimeout)
	v.SetDefault("redis.write_timeout", def.Redis.WriteTimeout)
	v.SetDefault("redis.max_retries", def.Redis.MaxRetries)

	v.SetDefault("worker.default_concurrency", def.Worker.DefaultConcurrency)
	v.SetDefault("worker.poll_interval", def.Worker.PollInterval)

	v.SetDefault("cron.evaluation_interval", def.Cron.EvaluationInterval)
	v.SetDefault("cron.default_tz", def.Cron.DefaultTZ)

	v.SetDefault("observability.metrics_port", def.Observability.MetricsPort)
	v.SetDefault("observability.log_level", def.Observability.LogLevel)
	v.SetDefault("observability.tracing.enabled", def.Observability.Tracing.Enabled)
	v.SetDefault("observability.tracing.environment", def.Observability.Tracing.Environment)
	v.SetDefault("observability.tracing.sample_rate", def.Observability.Tracing.SampleRate)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks config constraints and returns an error on invalid settings.
func Validate(cfg *Config) error {
	if cfg.Backend.Kind != "memory" && cfg.Backend.Kind != "redis" {
		return fmt.Errorf("backend.kind must be \"memory\" or \"redis\", got %q", cfg.Backend.Kind)
	}
	if cfg.Worker.DefaultConcurrency < 1 {
		return fmt.Errorf("worker.default_concurrency must be >= 1")
	}
	if cfg.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker.poll_interval must be > 0")
	}
	if cfg.Cron.EvaluationInterval <= 0 {
		return fmt.Errorf("cron.evaluation_interval must be > 0")
	}
	if cfg.Observability.MetricsPort <= 0 || cfg.Observability.MetricsPort > 65535 {
		return fmt.Errorf("observability.metrics_port must be 1..65535")
	}
	return nil
}
