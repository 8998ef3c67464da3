package enqueue

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"github.com/attunelabs/attune/internal/storage"
	workersqlite "github.com/attunelabs/attune/internal/storage/sqlite"
)

func TestParseConfig_Flags(t *testing.T) {
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-group", "group-1", "-trigger", "data_shared", "-priority", "7"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.GroupID != "group-1" || cfg.Trigger != "data_shared" || cfg.Priority != 7 {
		t.Fatalf("cfg = %+v, want parsed flags", cfg)
	}
}

func TestRunRequiresGroup(t *testing.T) {
	err := Run(context.Background(), Config{DBPath: filepath.Join(t.TempDir(), "db")}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error without group")
	}
}

func TestRunEnqueuesJob(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "attune.db")
	var out bytes.Buffer
	err := Run(context.Background(), Config{
		DBPath:   dbPath,
		GroupID:  "group-1",
		Trigger:  "manual",
		Priority: 2,
	}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	jobID := strings.TrimSpace(out.String())
	if jobID == "" {
		t.Fatal("expected printed job id")
	}

	store, err := workersqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	job, err := store.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != storage.JobPending || job.GroupID != "group-1" {
		t.Fatalf("job = %+v, want pending job for group-1", job)
	}
}
