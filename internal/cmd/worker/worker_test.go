package worker

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	t.Setenv("ATTUNE_WORKER_PORT", "9099")
	t.Setenv("ATTUNE_WORKER_MASTER_KEY", "env-master-key")

	cfg, err := ParseConfig(fs, []string{"-max-concurrent", "5", "-poll-interval", "2s"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9099 {
		t.Fatalf("port = %d, want 9099", cfg.Port)
	}
	if cfg.MasterKey != "env-master-key" {
		t.Fatalf("master key = %q, want env value", cfg.MasterKey)
	}
	if cfg.MaxConcurrent != 5 {
		t.Fatalf("max concurrent = %d, want 5", cfg.MaxConcurrent)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("poll interval = %v, want 2s", cfg.PollInterval)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8089 {
		t.Fatalf("port = %d, want 8089", cfg.Port)
	}
	if cfg.MaxConcurrent != 3 {
		t.Fatalf("max concurrent = %d, want 3", cfg.MaxConcurrent)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("poll interval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.MaxRetries != 3 {
		t.Fatalf("max retries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.BreakerThreshold != 5 {
		t.Fatalf("breaker threshold = %d, want 5", cfg.BreakerThreshold)
	}
	if cfg.BreakerReset != time.Minute {
		t.Fatalf("breaker reset = %v, want 1m", cfg.BreakerReset)
	}
}
