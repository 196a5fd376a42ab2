package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "http://localhost:3000" {
		t.Fatalf("BaseURL = %s", cfg.BaseURL)
	}
	if cfg.Resource != "students" || cfg.TokenEnv != "API_TOKEN" {
		t.Fatalf("unexpected resource/token env: %s %s", cfg.Resource, cfg.TokenEnv)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.RunInterval != 0 {
		t.Fatalf("RunInterval = %v, want run-once", cfg.RunInterval)
	}
	if cfg.StoragePath() != "./data/ledger.db" {
		t.Fatalf("StoragePath = %s", cfg.StoragePath())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://staging.example.com/")
	t.Setenv("STORAGE_TYPE", "sqlite")
	t.Setenv("RUN_INTERVAL", "60")

	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "https://staging.example.com" {
		t.Fatalf("BaseURL = %s", cfg.BaseURL)
	}
	if cfg.StoragePath() != "./data/ledger.sqlite" {
		t.Fatalf("StoragePath = %s", cfg.StoragePath())
	}
	if cfg.RunInterval != time.Minute {
		t.Fatalf("RunInterval = %v", cfg.RunInterval)
	}
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "0")
	if _, err := load(viper.New()); err == nil {
		t.Fatalf("expected error for zero timeout")
	}
}
