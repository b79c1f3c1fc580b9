package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
environment: test
binance:
  base_url: https://api.binance.com
postgres:
  host: localhost
  database: ratewatch
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Binance.MaxAttempts != 3 {
		t.Fatalf("expected default max attempts 3, got %d", cfg.Binance.MaxAttempts)
	}
	if cfg.Cache.RecentTTL != 5*time.Minute {
		t.Fatalf("expected default recent ttl, got %s", cfg.Cache.RecentTTL)
	}
	if cfg.Cache.HistoricalTTL != time.Hour {
		t.Fatalf("expected default historical ttl, got %s", cfg.Cache.HistoricalTTL)
	}
	if cfg.Cache.SnapshotTTL != time.Minute {
		t.Fatalf("expected default snapshot ttl, got %s", cfg.Cache.SnapshotTTL)
	}
	if cfg.Ingestion.FreshnessThreshold != 10*time.Minute {
		t.Fatalf("expected default freshness, got %s", cfg.Ingestion.FreshnessThreshold)
	}
	if cfg.Ingestion.Schedule == "" {
		t.Fatal("expected default ingestion schedule")
	}
	if cfg.Ingestion.TriggerBurst != 5 || cfg.Ingestion.TriggerRefillPerSec != 1 {
		t.Fatalf("expected default trigger limit, got %v/%v",
			cfg.Ingestion.TriggerBurst, cfg.Ingestion.TriggerRefillPerSec)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	cases := map[string]string{
		"environment": `
binance:
  base_url: https://api.binance.com
postgres:
  host: localhost
  database: ratewatch
`,
		"binance url": `
environment: test
postgres:
  host: localhost
  database: ratewatch
`,
		"postgres host": `
environment: test
binance:
  base_url: https://api.binance.com
postgres:
  database: ratewatch
`,
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadRejectsKafkaWithoutBrokers(t *testing.T) {
	content := minimalYAML + `
kafka:
  enabled: true
`
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Fatal("expected error for enabled kafka without brokers")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("BINANCE_BASE_URL", "http://localhost:9999")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Binance.BaseURL != "http://localhost:9999" {
		t.Fatalf("env override not applied: %s", cfg.Binance.BaseURL)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port override not applied: %d", cfg.Server.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
