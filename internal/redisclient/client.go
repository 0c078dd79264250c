// Copyright 2025 James Ross
package redisclient

import (
	goruntime "runtime"

	"github.com/redis/go-redis/v9"

	"github.com/ignitehq/igniter-jobs/internal/config"
)

// New returns a configured go-redis/v9 client for the durable backend,
// pooled and timed out per cfg.Redis.
func New(cfg *config.Config) *redis.Client {
	poolSize := cfg.Redis.PoolSizeMultiplier * goruntime.NumCPU()
	if poolSize <= 0 {
		poolSize = 10 * goruntime.NumCPU()
	}
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Username:     cfg.Redis.Username,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     poolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		MaxRetries:   cfg.Redis.MaxRetries,
	})
}
