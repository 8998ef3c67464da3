// Package enqueue queues an analysis job from the command line.
package enqueue

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	entrypoint "github.com/attunelabs/attune/internal/platform/cmd"
	"github.com/attunelabs/attune/internal/platform/id"
	"github.com/attunelabs/attune/internal/queue"
	workersqlite "github.com/attunelabs/attune/internal/storage/sqlite"
)

// Config holds enqueue command configuration.
type Config struct {
	DBPath   string `env:"ATTUNE_WORKER_DB_PATH" envDefault:"data/attune.db"`
	GroupID  string
	Trigger  string
	Priority int
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The worker SQLite database path")
	fs.StringVar(&cfg.GroupID, "group", "", "Group to analyze")
	fs.StringVar(&cfg.Trigger, "trigger", "manual", "Trigger reason recorded on the job")
	fs.IntVar(&cfg.Priority, "priority", 0, "Job priority (higher runs first)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run persists one pending job and prints its ID. A running worker picks the
// job up on its next poll tick.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if strings.TrimSpace(cfg.GroupID) == "" {
		return fmt.Errorf("group is required")
	}
	store, err := workersqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open worker sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close worker sqlite store: %v", closeErr)
		}
	}()

	q, err := queue.NewQueue(store, nil, time.Now, id.NewID, log.Printf)
	if err != nil {
		return err
	}
	jobID, err := q.Enqueue(ctx, cfg.GroupID, cfg.Trigger, cfg.Priority)
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	fmt.Fprintln(out, jobID)
	return nil
}
