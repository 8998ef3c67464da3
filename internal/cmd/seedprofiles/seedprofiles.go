// Package seedprofiles imports member profiles into a group from a JSON file,
// sealing each payload under the member's derived key.
package seedprofiles

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	entrypoint "github.com/attunelabs/attune/internal/platform/cmd"
	"github.com/attunelabs/attune/internal/profile"
	"github.com/attunelabs/attune/internal/profile/crypto"
	"github.com/attunelabs/attune/internal/storage"
	workersqlite "github.com/attunelabs/attune/internal/storage/sqlite"
)

// Config holds seed-profiles command configuration.
type Config struct {
	DBPath    string `env:"ATTUNE_WORKER_DB_PATH" envDefault:"data/attune.db"`
	MasterKey string `env:"ATTUNE_WORKER_MASTER_KEY"`
	GroupID   string
	File      string
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The worker SQLite database path")
	fs.StringVar(&cfg.MasterKey, "master-key", cfg.MasterKey, "Master key for profile sealing")
	fs.StringVar(&cfg.GroupID, "group", "", "Group the profiles belong to")
	fs.StringVar(&cfg.File, "file", "", "JSON file holding an array of member profiles")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run seals and stores every profile in the input file.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if strings.TrimSpace(cfg.GroupID) == "" {
		return fmt.Errorf("group is required")
	}
	if strings.TrimSpace(cfg.File) == "" {
		return fmt.Errorf("file is required")
	}
	sealer, err := crypto.NewSealer([]byte(cfg.MasterKey))
	if err != nil {
		return fmt.Errorf("build profile sealer: %w", err)
	}

	raw, err := os.ReadFile(cfg.File)
	if err != nil {
		return fmt.Errorf("read profiles file: %w", err)
	}
	var members []profile.MemberProfile
	if err := json.Unmarshal(raw, &members); err != nil {
		return fmt.Errorf("parse profiles file: %w", err)
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

	stored := 0
	for _, member := range members {
		normalized, err := member.Normalize()
		if err != nil {
			return fmt.Errorf("profile %q: %w", member.MemberID, err)
		}
		payload, err := json.Marshal(normalized)
		if err != nil {
			return fmt.Errorf("marshal profile %s: %w", normalized.MemberID, err)
		}
		sealed, err := sealer.Seal(ctx, payload, normalized.MemberID, cfg.GroupID)
		if err != nil {
			return fmt.Errorf("seal profile %s: %w", normalized.MemberID, err)
		}
		record := storage.MemberProfileRecord{
			GroupID:    cfg.GroupID,
			MemberID:   normalized.MemberID,
			Ciphertext: sealed,
			UpdatedAt:  time.Now().UTC(),
		}
		if err := store.PutMemberProfile(ctx, record); err != nil {
			return fmt.Errorf("store profile %s: %w", normalized.MemberID, err)
		}
		stored++
	}
	fmt.Fprintf(out, "stored %d profile(s) for group %s\n", stored, cfg.GroupID)
	return nil
}
