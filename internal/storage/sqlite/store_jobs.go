package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/attunelabs/attune/internal/storage"
)

// CreateJob persists a new analysis job.
func (s *Store) CreateJob(ctx context.Context, job storage.JobRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	job.ID = strings.TrimSpace(job.ID)
	job.GroupID = strings.TrimSpace(job.GroupID)
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if job.GroupID == "" {
		return fmt.Errorf("group id is required")
	}
	if job.Status == "" {
		job.Status = storage.JobPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.CreatedAt
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO analysis_jobs (
	id,
	group_id,
	trigger_reason,
	priority,
	status,
	retry_count,
	next_retry_at,
	last_error,
	created_at,
	updated_at,
	started_at,
	completed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		job.ID,
		job.GroupID,
		job.TriggerReason,
		job.Priority,
		string(job.Status),
		job.RetryCount,
		toNullMillis(job.NextRetryAt),
		job.LastError,
		toMillis(job.CreatedAt),
		toMillis(job.UpdatedAt),
		toNullMillis(job.StartedAt),
		toNullMillis(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// GetJob fetches one job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (storage.JobRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.JobRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.JobRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT
	id, group_id, trigger_reason, priority, status, retry_count,
	next_retry_at, last_error, created_at, updated_at, started_at, completed_at
FROM analysis_jobs
WHERE id = ?
`, strings.TrimSpace(jobID))

	job, err := scanJobRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.JobRecord{}, storage.ErrNotFound
		}
		return storage.JobRecord{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListRunnableJobs returns pending jobs eligible to run now, ordered by
// priority descending then creation time ascending.
func (s *Store) ListRunnableJobs(ctx context.Context, now time.Time, limit int) ([]storage.JobRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	id, group_id, trigger_reason, priority, status, retry_count,
	next_retry_at, last_error, created_at, updated_at, started_at, completed_at
FROM analysis_jobs
WHERE status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)
ORDER BY priority DESC, created_at ASC
LIMIT ?
`, string(storage.JobPending), toMillis(now), limit)
	if err != nil {
		return nil, fmt.Errorf("list runnable jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]storage.JobRecord, 0, limit)
	for rows.Next() {
		job, err := scanJobRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// MarkJobProcessing conditionally transitions pending -> processing. The
// conditional update is the cross-process half of the pickup exclusion
// invariant: only one writer observes a row change.
func (s *Store) MarkJobProcessing(ctx context.Context, jobID string, now time.Time) (storage.JobRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.JobRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.JobRecord{}, fmt.Errorf("storage is not configured")
	}

	jobID = strings.TrimSpace(jobID)
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE analysis_jobs
SET status = ?, started_at = ?, updated_at = ?
WHERE id = ? AND status = ?
`, string(storage.JobProcessing), toMillis(now), toMillis(now), jobID, string(storage.JobPending))
	if err != nil {
		return storage.JobRecord{}, fmt.Errorf("mark job processing: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.JobRecord{}, fmt.Errorf("mark job processing rows: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetJob(ctx, jobID); errors.Is(getErr, storage.ErrNotFound) {
			return storage.JobRecord{}, storage.ErrNotFound
		}
		return storage.JobRecord{}, storage.ErrNotPending
	}
	return s.GetJob(ctx, jobID)
}

// CompleteJob transitions processing -> completed.
func (s *Store) CompleteJob(ctx context.Context, jobID string, now time.Time) error {
	return s.transitionFromProcessing(ctx, jobID, `
UPDATE analysis_jobs
SET status = ?, completed_at = ?, updated_at = ?, last_error = ''
WHERE id = ? AND status = ?
`, string(storage.JobCompleted), toMillis(now), toMillis(now), jobID, string(storage.JobProcessing))
}

// RescheduleJob transitions processing -> pending with an incremented retry
// count and a next-eligible-retry timestamp.
func (s *Store) RescheduleJob(ctx context.Context, jobID string, lastError string, nextRetryAt time.Time, now time.Time) error {
	return s.transitionFromProcessing(ctx, jobID, `
UPDATE analysis_jobs
SET status = ?, retry_count = retry_count + 1, next_retry_at = ?, last_error = ?, updated_at = ?
WHERE id = ? AND status = ?
`, string(storage.JobPending), toMillis(nextRetryAt), lastError, toMillis(now), jobID, string(storage.JobProcessing))
}

// MarkJobFailed transitions processing -> failed terminally. The last error is
// recorded verbatim for operator visibility.
func (s *Store) MarkJobFailed(ctx context.Context, jobID string, lastError string, now time.Time) error {
	return s.transitionFromProcessing(ctx, jobID, `
UPDATE analysis_jobs
SET status = ?, last_error = ?, updated_at = ?
WHERE id = ? AND status = ?
`, string(storage.JobFailed), lastError, toMillis(now), jobID, string(storage.JobProcessing))
}

// CountJobs summarizes queue state for the status surface.
func (s *Store) CountJobs(ctx context.Context, now time.Time) (storage.JobCounts, error) {
	if err := ctx.Err(); err != nil {
		return storage.JobCounts{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.JobCounts{}, fmt.Errorf("storage is not configured")
	}

	var counts storage.JobCounts
	hourAgo := toMillis(now.Add(-time.Hour))
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT
	COUNT(CASE WHEN status = ? THEN 1 END),
	COUNT(CASE WHEN status = ? THEN 1 END),
	COUNT(CASE WHEN status = ? AND updated_at >= ? THEN 1 END),
	COALESCE(AVG(CASE WHEN status = ? AND started_at IS NOT NULL AND completed_at IS NOT NULL
		THEN completed_at - started_at END), 0)
FROM analysis_jobs
`,
		string(storage.JobPending),
		string(storage.JobProcessing),
		string(storage.JobFailed), hourAgo,
		string(storage.JobCompleted),
	)

	var avgMillis float64
	if err := row.Scan(&counts.Pending, &counts.Processing, &counts.FailedLastHour, &avgMillis); err != nil {
		return storage.JobCounts{}, fmt.Errorf("count jobs: %w", err)
	}
	counts.AvgProcessing = time.Duration(avgMillis * float64(time.Millisecond))
	return counts, nil
}

func (s *Store) transitionFromProcessing(ctx context.Context, jobID string, query string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition job rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanJobRow(scan func(dest ...any) error) (storage.JobRecord, error) {
	var (
		job         storage.JobRecord
		status      string
		nextRetryAt sql.NullInt64
		createdAt   int64
		updatedAt   int64
		startedAt   sql.NullInt64
		completedAt sql.NullInt64
	)
	if err := scan(
		&job.ID,
		&job.GroupID,
		&job.TriggerReason,
		&job.Priority,
		&status,
		&job.RetryCount,
		&nextRetryAt,
		&job.LastError,
		&createdAt,
		&updatedAt,
		&startedAt,
		&completedAt,
	); err != nil {
		return storage.JobRecord{}, err
	}
	job.Status = storage.JobStatus(status)
	job.NextRetryAt = fromNullMillis(nextRetryAt)
	job.CreatedAt = fromMillis(createdAt)
	job.UpdatedAt = fromMillis(updatedAt)
	job.StartedAt = fromNullMillis(startedAt)
	job.CompletedAt = fromNullMillis(completedAt)
	return job, nil
}
