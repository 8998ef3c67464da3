package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/attunelabs/attune/internal/analysis"
	"github.com/attunelabs/attune/internal/storage"
)

const (
	// DefaultMaxConcurrent caps in-flight analyses per process.
	DefaultMaxConcurrent = 3
	// DefaultPollInterval is the pending-job poll cadence.
	DefaultPollInterval = 5 * time.Second
	// DefaultMaxRetries is the number of processing attempts before a job is
	// failed terminally.
	DefaultMaxRetries = 3
	// DefaultRetryDelay seeds the doubling retry backoff.
	DefaultRetryDelay = 30 * time.Second
	// DefaultShutdownGrace bounds the wait for in-flight jobs at shutdown.
	DefaultShutdownGrace = 30 * time.Second
)

// Analyzer runs one group analysis.
type Analyzer interface {
	Analyze(ctx context.Context, groupID string, opts analysis.Options) (analysis.GroupAnalysisResult, error)
}

// Subscriber provides the push notification path.
type Subscriber interface {
	Subscribe(topic string, buffer int) (<-chan []byte, func())
}

// ProcessorConfig tunes the processor. Zero values take the defaults.
type ProcessorConfig struct {
	MaxConcurrent int
	PollInterval  time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	ShutdownGrace time.Duration
}

func (c ProcessorConfig) withDefaults() ProcessorConfig {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = DefaultShutdownGrace
	}
	return c
}

// Processor discovers pending jobs via polling and push notifications and
// runs them through the analyzer with bounded concurrency.
type Processor struct {
	store      storage.JobStore
	analyzer   Analyzer
	subscriber Subscriber
	cfg        ProcessorConfig
	clock      func() time.Time
	logf       func(format string, args ...any)

	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// NewProcessor builds a processor. The subscriber may be nil; polling alone
// then discovers all work.
func NewProcessor(store storage.JobStore, analyzer Analyzer, subscriber Subscriber, cfg ProcessorConfig, clock func() time.Time, logf func(format string, args ...any)) (*Processor, error) {
	if store == nil {
		return nil, fmt.Errorf("job store is required")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if clock == nil {
		clock = time.Now
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Processor{
		store:      store,
		analyzer:   analyzer,
		subscriber: subscriber,
		cfg:        cfg.withDefaults(),
		clock:      clock,
		logf:       logf,
		running:    make(map[string]struct{}),
	}, nil
}

// Run processes jobs until ctx is canceled, then drains in-flight jobs for up
// to the shutdown grace period. Jobs still running at the deadline are
// reported as a warning, not an error.
func (p *Processor) Run(ctx context.Context) error {
	// In-flight jobs outlive the run context during the grace period and are
	// only canceled when the grace deadline passes.
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	var notifications <-chan []byte
	if p.subscriber != nil {
		ch, cancel := p.subscriber.Subscribe(JobTopic, 2*p.cfg.MaxConcurrent)
		defer cancel()
		notifications = ch
	}

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	// Drain immediately on startup instead of waiting a full tick.
	p.poll(ctx, jobCtx)

	for {
		select {
		case <-ctx.Done():
			return p.drain(cancelJobs)
		case payload, ok := <-notifications:
			if !ok {
				notifications = nil
				continue
			}
			p.handleNotification(ctx, jobCtx, payload)
		case <-ticker.C:
			p.poll(ctx, jobCtx)
		}
	}
}

// Status reports queue counts for the health surface.
func (p *Processor) Status(ctx context.Context) (storage.JobCounts, error) {
	return p.store.CountJobs(ctx, p.clock().UTC())
}

// InFlight reports the number of jobs currently running in this process.
func (p *Processor) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.running)
}

// poll picks up runnable jobs up to the remaining concurrency budget. Jobs
// beyond the cap stay pending for the next tick; that is backpressure, not a
// failure.
func (p *Processor) poll(ctx, jobCtx context.Context) {
	capacity := p.cfg.MaxConcurrent - p.InFlight()
	if capacity <= 0 {
		return
	}
	jobs, err := p.store.ListRunnableJobs(ctx, p.clock().UTC(), capacity)
	if err != nil {
		if ctx.Err() == nil {
			p.logf("poll failed: %v", err)
		}
		return
	}
	for _, job := range jobs {
		p.dispatch(ctx, jobCtx, job.ID)
	}
}

// handleNotification processes one named job immediately if it is still
// pending and capacity allows.
func (p *Processor) handleNotification(ctx, jobCtx context.Context, payload []byte) {
	var notification Notification
	if err := json.Unmarshal(payload, &notification); err != nil {
		p.logf("discarding malformed job notification: %v", err)
		return
	}
	if notification.JobID == "" {
		return
	}
	if p.InFlight() >= p.cfg.MaxConcurrent {
		// Over capacity; the poll path picks the job up later.
		return
	}
	p.dispatch(ctx, jobCtx, notification.JobID)
}

// dispatch claims a job and runs it in its own goroutine. The in-memory
// running set guarantees a job observed by both discovery paths at once is
// picked up exactly once; the conditional store transition guards against
// other processes.
func (p *Processor) dispatch(ctx, jobCtx context.Context, jobID string) {
	if !p.acquire(jobID) {
		return
	}
	job, err := p.store.MarkJobProcessing(ctx, jobID, p.clock().UTC())
	if err != nil {
		p.release(jobID)
		if !errors.Is(err, storage.ErrNotPending) && !errors.Is(err, storage.ErrNotFound) && ctx.Err() == nil {
			p.logf("claim job %s: %v", jobID, err)
		}
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.release(jobID)
		p.process(jobCtx, job)
	}()
}

// process runs the analysis for one claimed job and records the outcome.
func (p *Processor) process(ctx context.Context, job storage.JobRecord) {
	opts := analysis.DefaultOptions()
	// A job means the group's data changed, so the cached result is stale.
	opts.ForceRefresh = true

	_, err := p.analyzer.Analyze(ctx, job.GroupID, opts)
	now := p.clock().UTC()
	if err == nil {
		if err := p.store.CompleteJob(ctx, job.ID, now); err != nil {
			p.logf("complete job %s: %v", job.ID, err)
		}
		p.logf("job %s completed for group %s", job.ID, job.GroupID)
		return
	}

	// Attempt n runs with RetryCount n-1; the final attempt fails terminally.
	if job.RetryCount+1 >= p.cfg.MaxRetries {
		if markErr := p.store.MarkJobFailed(context.WithoutCancel(ctx), job.ID, err.Error(), now); markErr != nil {
			p.logf("mark job %s failed: %v", job.ID, markErr)
		}
		p.logf("job %s failed terminally after %d attempts: %v", job.ID, job.RetryCount+1, err)
		return
	}
	delay := p.cfg.RetryDelay << job.RetryCount
	if rescheduleErr := p.store.RescheduleJob(context.WithoutCancel(ctx), job.ID, err.Error(), now.Add(delay), now); rescheduleErr != nil {
		p.logf("reschedule job %s: %v", job.ID, rescheduleErr)
		return
	}
	p.logf("job %s rescheduled in %s after failure: %v", job.ID, delay, err)
}

// drain waits for in-flight jobs up to the grace period.
func (p *Processor) drain(cancelJobs context.CancelFunc) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(p.cfg.ShutdownGrace):
		p.mu.Lock()
		stillRunning := len(p.running)
		p.mu.Unlock()
		p.logf("warning: %d job(s) still running at shutdown deadline", stillRunning)
		cancelJobs()
		return nil
	}
}

func (p *Processor) acquire(jobID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.running[jobID]; exists {
		return false
	}
	p.running[jobID] = struct{}{}
	return true
}

func (p *Processor) release(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.running, jobID)
}
