// Copyright 2025 James Ross
package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("IGNITER_WORKER_DEFAULT_CONCURRENCY")
	cfg, err := Load("nonexistent.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Worker.DefaultConcurrency != 4 {
		t.Fatalf("expected default worker concurrency 4, got %d", cfg.Worker.DefaultConcurrency)
	}
	if cfg.Backend.Kind != "memory" {
		t.Fatalf("expected default backend kind memory, got %q", cfg.Backend.Kind)
	}
	if cfg.Redis.Addr == "" {
		t.Fatalf("expected default redis addr")
	}
}

func TestLoadFromFile(t *testing.T) {
	raw, err := yaml.Marshal(map[string]any{
		"service":     "billing",
		"environment": "staging",
		"backend":     map[string]any{"kind": "redis"},
		"redis":       map[string]any{"addr": "redis.internal:6379"},
	})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Service != "billing" {
		t.Fatalf("expected service %q, got %q", "billing", cfg.Service)
	}
	if cfg.Backend.Kind != "redis" {
		t.Fatalf("expected backend kind redis, got %q", cfg.Backend.Kind)
	}
	if cfg.Redis.Addr != "redis.internal:6379" {
		t.Fatalf("expected redis addr override, got %q", cfg.Redis.Addr)
	}
}

func TestValidateFails(t *testing.T) {
	cfg := defaultConfig()
	cfg.Worker.DefaultConcurrency = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for worker.default_concurrency < 1")
	}
	cfg = defaultConfig()
	cfg.Backend.Kind = "postgres"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for unsupported backend kind")
	}
	cfg = defaultConfig()
	cfg.Observability.MetricsPort = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for invalid metrics port")
	}
}
