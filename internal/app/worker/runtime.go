// Package worker wires the analysis pipeline into a runnable service.
package worker

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/attunelabs/attune/internal/analysis"
	"github.com/attunelabs/attune/internal/cache/bboltcache"
	"github.com/attunelabs/attune/internal/platform/id"
	"github.com/attunelabs/attune/internal/profile/crypto"
	"github.com/attunelabs/attune/internal/pubsub"
	"github.com/attunelabs/attune/internal/queue"
	workersqlite "github.com/attunelabs/attune/internal/storage/sqlite"
	"github.com/attunelabs/attune/internal/synthesis"
	"github.com/attunelabs/attune/internal/synthesis/breaker"
)

// RuntimeConfig controls worker startup, dependencies, and loop behavior.
type RuntimeConfig struct {
	Port             int
	DBPath           string
	CachePath        string
	MasterKey        string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	MaxConcurrent    int
	PollInterval     time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
	ShutdownGrace    time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
}

const (
	defaultWorkerPort  = 8089
	defaultWorkerDB    = "data/attune.db"
	defaultWorkerCache = "data/cache.db"

	healthCheckInterval = 10 * time.Second
)

// Run starts worker runtime dependencies and the job processing loop.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.MasterKey) == "" {
		return fmt.Errorf("profile master key is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultWorkerPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultWorkerDB
	}
	if strings.TrimSpace(cfg.CachePath) == "" {
		cfg.CachePath = defaultWorkerCache
	}

	for _, path := range []string{cfg.DBPath, cfg.CachePath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create worker storage dir: %w", err)
			}
		}
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

	cache, err := bboltcache.Open(cfg.CachePath)
	if err != nil {
		return fmt.Errorf("open result cache: %w", err)
	}
	defer func() {
		if closeErr := cache.Close(); closeErr != nil {
			log.Printf("close result cache: %v", closeErr)
		}
	}()

	sealer, err := crypto.NewSealer([]byte(cfg.MasterKey))
	if err != nil {
		return fmt.Errorf("build profile sealer: %w", err)
	}

	broker := pubsub.New()
	defer broker.Close()

	circuit := breaker.New(
		breaker.WithFailureThreshold(cfg.BreakerThreshold),
		breaker.WithResetTimeout(cfg.BreakerReset),
	)
	var remote analysis.Synthesizer
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		remoteSynth, err := synthesis.NewRemote(synthesis.RemoteConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			return fmt.Errorf("build remote synthesizer: %w", err)
		}
		remote = remoteSynth
	} else {
		log.Printf("no model api key configured, narratives use fallback templates")
	}
	narrator := synthesis.NewNarrator(remote, circuit, log.Printf)

	orchestrator, err := analysis.New(store, store, sealer, time.Now, id.NewID,
		analysis.WithCache(cache),
		analysis.WithPublisher(broker),
		analysis.WithSynthesizer(narrator),
		analysis.WithLogger(log.Printf),
	)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	processor, err := queue.NewProcessor(store, orchestrator, broker, queue.ProcessorConfig{
		MaxConcurrent: cfg.MaxConcurrent,
		PollInterval:  cfg.PollInterval,
		MaxRetries:    cfg.MaxRetries,
		RetryDelay:    cfg.RetryDelay,
		ShutdownGrace: cfg.ShutdownGrace,
	}, time.Now, log.Printf)
	if err != nil {
		return fmt.Errorf("build job processor: %w", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on worker port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("worker.queue", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("worker.synthesis", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	go watchHealth(ctx, healthServer, processor, narrator)

	log.Printf("worker server listening at %v", listener.Addr())
	return processor.Run(ctx)
}

// watchHealth keeps the per-component serving statuses current. An open
// synthesis circuit or an unreachable job store degrades the matching status.
func watchHealth(ctx context.Context, healthServer *health.Server, processor *queue.Processor, narrator *synthesis.Narrator) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		queueStatus := grpc_health_v1.HealthCheckResponse_SERVING
		if _, err := processor.Status(ctx); err != nil && ctx.Err() == nil {
			log.Printf("queue status check failed: %v", err)
			queueStatus = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		healthServer.SetServingStatus("worker.queue", queueStatus)

		synthesisStatus := grpc_health_v1.HealthCheckResponse_SERVING
		if narrator.Status().CircuitState == breaker.Open {
			synthesisStatus = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		healthServer.SetServingStatus("worker.synthesis", synthesisStatus)
	}
}
