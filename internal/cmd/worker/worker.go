// Package worker parses worker command flags and launches the worker runtime.
package worker

import (
	"context"
	"flag"
	"time"

	workerapp "github.com/attunelabs/attune/internal/app/worker"
	entrypoint "github.com/attunelabs/attune/internal/platform/cmd"
)

// Config holds worker command configuration.
type Config struct {
	Port             int           `env:"ATTUNE_WORKER_PORT" envDefault:"8089"`
	DBPath           string        `env:"ATTUNE_WORKER_DB_PATH" envDefault:"data/attune.db"`
	CachePath        string        `env:"ATTUNE_WORKER_CACHE_PATH" envDefault:"data/cache.db"`
	MasterKey        string        `env:"ATTUNE_WORKER_MASTER_KEY"`
	OpenAIAPIKey     string        `env:"ATTUNE_WORKER_OPENAI_API_KEY"`
	OpenAIBaseURL    string        `env:"ATTUNE_WORKER_OPENAI_BASE_URL"`
	OpenAIModel      string        `env:"ATTUNE_WORKER_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	MaxConcurrent    int           `env:"ATTUNE_WORKER_MAX_CONCURRENT" envDefault:"3"`
	PollInterval     time.Duration `env:"ATTUNE_WORKER_POLL_INTERVAL" envDefault:"5s"`
	MaxRetries       int           `env:"ATTUNE_WORKER_MAX_RETRIES" envDefault:"3"`
	RetryDelay       time.Duration `env:"ATTUNE_WORKER_RETRY_DELAY" envDefault:"30s"`
	ShutdownGrace    time.Duration `env:"ATTUNE_WORKER_SHUTDOWN_GRACE" envDefault:"30s"`
	BreakerThreshold int           `env:"ATTUNE_WORKER_BREAKER_THRESHOLD" envDefault:"5"`
	BreakerReset     time.Duration `env:"ATTUNE_WORKER_BREAKER_RESET" envDefault:"60s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The worker health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The worker SQLite database path")
	fs.StringVar(&cfg.CachePath, "cache-path", cfg.CachePath, "The result cache database path")
	fs.StringVar(&cfg.MasterKey, "master-key", cfg.MasterKey, "Master key for profile decryption")
	fs.StringVar(&cfg.OpenAIAPIKey, "openai-api-key", cfg.OpenAIAPIKey, "API key for remote narrative synthesis")
	fs.StringVar(&cfg.OpenAIBaseURL, "openai-base-url", cfg.OpenAIBaseURL, "Override base URL for the model API")
	fs.StringVar(&cfg.OpenAIModel, "openai-model", cfg.OpenAIModel, "Model used for narrative synthesis")
	fs.IntVar(&cfg.MaxConcurrent, "max-concurrent", cfg.MaxConcurrent, "Maximum in-flight analyses")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Pending job poll interval")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Processing attempts before a job fails terminally")
	fs.DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "Base job retry delay")
	fs.DurationVar(&cfg.ShutdownGrace, "shutdown-grace", cfg.ShutdownGrace, "Bounded wait for in-flight jobs at shutdown")
	fs.IntVar(&cfg.BreakerThreshold, "breaker-threshold", cfg.BreakerThreshold, "Consecutive synthesis failures before the circuit opens")
	fs.DurationVar(&cfg.BreakerReset, "breaker-reset", cfg.BreakerReset, "Cool-down before the synthesis circuit probes again")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the worker runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWorker, func(context.Context) error {
		return workerapp.Run(ctx, workerapp.RuntimeConfig{
			Port:             cfg.Port,
			DBPath:           cfg.DBPath,
			CachePath:        cfg.CachePath,
			MasterKey:        cfg.MasterKey,
			OpenAIAPIKey:     cfg.OpenAIAPIKey,
			OpenAIBaseURL:    cfg.OpenAIBaseURL,
			OpenAIModel:      cfg.OpenAIModel,
			MaxConcurrent:    cfg.MaxConcurrent,
			PollInterval:     cfg.PollInterval,
			MaxRetries:       cfg.MaxRetries,
			RetryDelay:       cfg.RetryDelay,
			ShutdownGrace:    cfg.ShutdownGrace,
			BreakerThreshold: cfg.BreakerThreshold,
			BreakerReset:     cfg.BreakerReset,
		})
	})
}
