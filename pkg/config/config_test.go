package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
environment: test
pipeline:
  instruments: [bitcoin, ethereum]
`

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Pipeline.Reference != "bitcoin" {
		t.Fatalf("expected reference default, got %q", c.Pipeline.Reference)
	}
	if c.Pipeline.Interval != time.Minute {
		t.Fatalf("expected 1m interval default, got %v", c.Pipeline.Interval)
	}
	if c.Pipeline.HistorySize != 1440 || c.Pipeline.HourWindow != 60 || c.Pipeline.DayWindow != 1440 {
		t.Fatalf("unexpected window defaults: %+v", c.Pipeline)
	}
	if c.Pipeline.Threshold != 5.0 {
		t.Fatalf("expected 5.0 threshold default, got %v", c.Pipeline.Threshold)
	}
	if c.Cache.Backend != "memory" || c.Cache.TTL != 60*time.Second {
		t.Fatalf("unexpected cache defaults: %+v", c.Cache)
	}
	if c.Backend.Type != "none" {
		t.Fatalf("expected backend 'none', got %q", c.Backend.Type)
	}
}

func TestLoadRejectsEmptyInstruments(t *testing.T) {
	_, err := Load(writeConfig(t, "environment: test\n"))
	if err == nil {
		t.Fatal("expected validation error for missing instruments")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"backend:\n  type: postgres\n"))
	if err == nil {
		t.Fatal("expected validation error for unknown backend")
	}
}

func TestLoadRejectsKafkaWithoutBrokers(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"backend:\n  type: kafka\n"))
	if err == nil {
		t.Fatal("expected validation error for kafka backend without brokers")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("INSTRUMENTS", "solana,cardano")
	t.Setenv("CACHE_BACKEND", "redis")

	c, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Pipeline.Instruments) != 2 || c.Pipeline.Instruments[0] != "solana" {
		t.Fatalf("env instruments not applied: %v", c.Pipeline.Instruments)
	}
	if c.Cache.Backend != "redis" {
		t.Fatalf("env cache backend not applied: %q", c.Cache.Backend)
	}
}
