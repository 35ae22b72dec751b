// Package queue implements ports.JobQueue and ports.DedupStore: an
// in-process queue for single-node deployments and tests, and a
// Redis-backed dedup store (Redis SETNX) for multi-worker production
// deployments.
package queue

import (
	"context"
	"sync"

	"github.com/caliber-data/lade/internal/core/domain"
)

// MemoryQueue is a bounded FIFO ports.JobQueue backed by a channel.
// Dequeue blocks until a job is available or ctx is cancelled, matching
// the interface contract.
type MemoryQueue struct {
	jobs chan domain.WorkflowJob
	mu   sync.Mutex
	len  int
}

// NewMemoryQueue builds a queue with the given channel capacity.
func NewMemoryQueue(capacity int) *MemoryQueue {
	return &MemoryQueue{jobs: make(chan domain.WorkflowJob, capacity)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job domain.WorkflowJob) error {
	select {
	case q.jobs <- job:
		q.mu.Lock()
		q.len++
		q.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (domain.WorkflowJob, error) {
	select {
	case job := <-q.jobs:
		q.mu.Lock()
		q.len--
		q.mu.Unlock()
		return job, nil
	case <-ctx.Done():
		return domain.WorkflowJob{}, ctx.Err()
	}
}

func (q *MemoryQueue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.len, nil
}
