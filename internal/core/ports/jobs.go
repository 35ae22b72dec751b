package ports

import (
	"context"
	"time"

	"github.com/caliber-data/lade/internal/core/domain"
)

// JobQueue is the work-distribution seam for WorkflowJobs. Enqueue is
// called by the write-hook handler; Dequeue is called by JobRunner's
// worker pool.
type JobQueue interface {
	Enqueue(ctx context.Context, job domain.WorkflowJob) error
	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (domain.WorkflowJob, error)
	// Len reports the current backlog, for operator visibility.
	Len(ctx context.Context) (int, error)
}

// DedupStore implements the single compare-and-swap-with-TTL primitive
// the job runner needs to suppress duplicate enqueues within the dedup
// window. TryAcquire reports true if the key was not already held,
// atomically claiming it for ttl.
type DedupStore interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
