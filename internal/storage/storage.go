// Package storage defines persistence boundaries for analysis artifacts.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNotPending indicates a job pickup raced another worker and lost.
	ErrNotPending = errors.New("job is not pending")
)

// InsightType discriminates persisted analysis payload kinds.
type InsightType string

const (
	InsightFullResult    InsightType = "full_result"
	InsightCompatibility InsightType = "compatibility"
	InsightStrengths     InsightType = "strengths"
	InsightRisks         InsightType = "risks"
	InsightGoalAlignment InsightType = "goal_alignment"
)

// InsightRecord is one persisted, JSON-serialized insight payload for a group.
type InsightRecord struct {
	GroupID     string
	Type        InsightType
	PayloadJSON string
	Confidence  float64
	GeneratedAt time.Time
	ExpiresAt   *time.Time
}

// InsightStore persists decomposed analysis insight payloads.
type InsightStore interface {
	// UpsertGroupInsights transactionally replaces the given insight types for
	// one group. The operation is idempotent per (group, insight type).
	UpsertGroupInsights(ctx context.Context, groupID string, records []InsightRecord) error
	ListGroupInsights(ctx context.Context, groupID string) ([]InsightRecord, error)
}

// JobStatus is the lifecycle state of an analysis job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// JobRecord is one durable analysis job.
type JobRecord struct {
	ID            string
	GroupID       string
	TriggerReason string
	Priority      int
	Status        JobStatus
	RetryCount    int
	NextRetryAt   *time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// JobCounts summarizes queue state for the status surface.
type JobCounts struct {
	Pending        int
	Processing     int
	FailedLastHour int
	AvgProcessing  time.Duration
}

// JobStore persists analysis job lifecycle state.
type JobStore interface {
	CreateJob(ctx context.Context, job JobRecord) error
	GetJob(ctx context.Context, jobID string) (JobRecord, error)
	// ListRunnableJobs returns pending jobs whose next_retry_at is unset or in
	// the past, ordered by priority descending then creation time ascending.
	ListRunnableJobs(ctx context.Context, now time.Time, limit int) ([]JobRecord, error)
	// MarkJobProcessing conditionally transitions pending -> processing.
	// It returns ErrNotPending when another worker won the job.
	MarkJobProcessing(ctx context.Context, jobID string, now time.Time) (JobRecord, error)
	CompleteJob(ctx context.Context, jobID string, now time.Time) error
	// RescheduleJob transitions processing -> pending with a retry delay.
	RescheduleJob(ctx context.Context, jobID string, lastError string, nextRetryAt time.Time, now time.Time) error
	// MarkJobFailed transitions processing -> failed terminally, recording the
	// last error verbatim for operator visibility.
	MarkJobFailed(ctx context.Context, jobID string, lastError string, now time.Time) error
	CountJobs(ctx context.Context, now time.Time) (JobCounts, error)
}

// MemberProfileRecord is one member's sealed profile payload.
type MemberProfileRecord struct {
	GroupID    string
	MemberID   string
	Ciphertext []byte
	UpdatedAt  time.Time
}

// ProfileStore persists sealed member profile payloads.
type ProfileStore interface {
	PutMemberProfile(ctx context.Context, record MemberProfileRecord) error
	ListGroupProfiles(ctx context.Context, groupID string) ([]MemberProfileRecord, error)
}
