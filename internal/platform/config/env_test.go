package config

import (
	"testing"
	"time"
)

type envConfig struct {
	Addr         string        `env:"ATTUNE_TEST_ADDR" envDefault:"127.0.0.1:8080"`
	PollInterval time.Duration `env:"ATTUNE_TEST_POLL_INTERVAL" envDefault:"5s"`
	MaxJobs      int           `env:"ATTUNE_TEST_MAX_JOBS" envDefault:"3"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8080" {
		t.Fatalf("addr = %q, want %q", cfg.Addr, "127.0.0.1:8080")
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("poll interval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.MaxJobs != 3 {
		t.Fatalf("max jobs = %d, want 3", cfg.MaxJobs)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("ATTUNE_TEST_MAX_JOBS", "7")

	var cfg envConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.MaxJobs != 7 {
		t.Fatalf("max jobs = %d, want 7", cfg.MaxJobs)
	}
}
