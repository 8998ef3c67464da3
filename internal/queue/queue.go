// Package queue runs durable analysis jobs with bounded concurrency.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/attunelabs/attune/internal/storage"
)

// JobTopic carries new-job notifications from enqueuers to processors.
const JobTopic = "analysis.jobs"

// Notification is the payload published when a job is enqueued.
type Notification struct {
	JobID   string `json:"job_id"`
	GroupID string `json:"group_id"`
}

// Publisher announces enqueued jobs to in-process subscribers.
type Publisher interface {
	Publish(topic string, payload []byte)
}

// Queue is the enqueue side of the job pipeline.
type Queue struct {
	store     storage.JobStore
	publisher Publisher
	clock     func() time.Time
	newID     func() (string, error)
	logf      func(format string, args ...any)
}

// NewQueue builds an enqueuer. The publisher may be nil; polling processors
// still pick the job up.
func NewQueue(store storage.JobStore, publisher Publisher, clock func() time.Time, newID func() (string, error), logf func(format string, args ...any)) (*Queue, error) {
	if store == nil {
		return nil, fmt.Errorf("job store is required")
	}
	if clock == nil {
		clock = time.Now
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Queue{store: store, publisher: publisher, clock: clock, newID: newID, logf: logf}, nil
}

// Enqueue persists a new pending job and returns its ID. The job is durable
// before this returns; the follow-up notification is best effort and its loss
// only delays pickup until the next poll tick.
func (q *Queue) Enqueue(ctx context.Context, groupID, triggerReason string, priority int) (string, error) {
	if q == nil || q.store == nil {
		return "", fmt.Errorf("queue is not configured")
	}
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return "", fmt.Errorf("group id is required")
	}
	jobID, err := q.newID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	now := q.clock().UTC()
	job := storage.JobRecord{
		ID:            jobID,
		GroupID:       groupID,
		TriggerReason: strings.TrimSpace(triggerReason),
		Priority:      priority,
		Status:        storage.JobPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := q.store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	if q.publisher != nil {
		payload, err := json.Marshal(Notification{JobID: jobID, GroupID: groupID})
		if err == nil {
			q.publisher.Publish(JobTopic, payload)
		} else {
			q.logf("job %s persisted but notification marshal failed: %v", jobID, err)
		}
	}
	return jobID, nil
}
