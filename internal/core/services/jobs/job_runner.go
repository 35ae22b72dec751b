// Package jobs turns lease-write events into at-most-one-effective
// executions of the discovery workflow: dedup before enqueue, a bounded
// worker pool, and exponential-backoff retry on transient cloud
// failures.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/caliber-data/lade/internal/core/ports"
	"github.com/caliber-data/lade/internal/core/services/audit"
	"github.com/caliber-data/lade/internal/core/services/discovery"
	"github.com/caliber-data/lade/internal/telemetry"
	"github.com/caliber-data/lade/internal/worker"
)

// DefaultDedupTTL is the default 120s dedup window.
const DefaultDedupTTL = 120 * time.Second

// SoftLimit and HardLimit are the per-attempt timeouts.
const (
	SoftLimit = 90 * time.Second
	HardLimit = 120 * time.Second
)

// DiscoveryRunner is the subset of *discovery.FullWorkflow the job
// runner depends on; an interface so tests can substitute a fake without
// constructing real CloudPort/repository doubles.
type DiscoveryRunner interface {
	Execute(ctx context.Context, leaseID uint) (discovery.FullResult, error)
}

// Runner drives the worker pool and retry policy. It never persists
// WorkflowJob rows (they are ephemeral); a bounded in-memory ring serves
// the read-only status endpoints.
type Runner struct {
	queue    ports.JobQueue
	dedup    ports.DedupStore
	workflow DiscoveryRunner
	policy   RetryPolicy
	dedupTTL time.Duration

	statuses *statusRing
	pool     *worker.Pool
}

// Option configures a Runner at construction.
type Option func(*Runner)

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(r *Runner) { r.policy = p }
}

// WithDedupTTL overrides DefaultDedupTTL.
func WithDedupTTL(ttl time.Duration) Option {
	return func(r *Runner) { r.dedupTTL = ttl }
}

// NewRunner builds a Runner ready to have Start called on it.
func NewRunner(queue ports.JobQueue, dedup ports.DedupStore, workflow DiscoveryRunner, opts ...Option) *Runner {
	r := &Runner{
		queue:    queue,
		dedup:    dedup,
		workflow: workflow,
		policy:   DefaultRetryPolicy(),
		dedupTTL: DefaultDedupTTL,
		statuses: newStatusRing(500),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enqueue implements the write-hook contract: attempt to claim the
// task-scoped dedup key, and only push the job onto the queue when the
// claim succeeds. Returns enqueued=false (not an error) when another
// in-flight job already owns the dedup window.
func (r *Runner) Enqueue(ctx context.Context, task domain.TaskName, leaseID uint, userID string) (enqueued bool, err error) {
	if userID == "" {
		// A deliberate quiet skip — background jobs need a user identity
		// for cloud auth, and there is nowhere useful to surface an error.
		slog.Info("lade: job drop, no user identity in context", "task", task, "lease_id", leaseID)
		return false, nil
	}

	key := domain.DedupKeyFor(task, leaseID)
	acquired, err := r.dedup.TryAcquire(ctx, key, r.dedupTTL)
	if err != nil {
		return false, err
	}
	if !acquired {
		slog.Info("lade: job deduped", "task", task, "lease_id", leaseID, "dedup_key", key)
		telemetry.JobsDeduped.WithLabelValues(string(task)).Inc()
		return false, nil
	}

	job := domain.WorkflowJob{
		ID:         uuid.NewString(),
		TaskName:   task,
		LeaseID:    leaseID,
		UserID:     userID,
		Attempt:    1,
		EnqueuedAt: time.Now().UTC(),
		DedupKey:   key,
		State:      domain.JobQueued,
	}
	if err := r.queue.Enqueue(ctx, job); err != nil {
		return false, err
	}
	r.statuses.put(job)
	telemetry.JobsEnqueued.WithLabelValues(string(task)).Inc()
	return true, nil
}

// Start spawns numWorkers goroutines under an worker.Pool pulling from
// the queue until ctx is cancelled. Stop cancels the pool and waits for
// workers to exit.
func (r *Runner) Start(ctx context.Context, numWorkers int) {
	r.pool = worker.NewPool(ctx)
	r.pool.Spawn("job-worker", numWorkers, r.runWorker)
}

// Stop cancels the worker pool and waits for in-flight jobs to return.
func (r *Runner) Stop() {
	if r.pool != nil {
		r.pool.Stop()
	}
}

func (r *Runner) runWorker(ctx context.Context, _ int) error {
	for {
		job, err := r.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		r.execute(ctx, job)
	}
}

func (r *Runner) execute(ctx context.Context, job domain.WorkflowJob) {
	job.State = domain.JobRunning
	r.statuses.put(job)
	telemetry.JobAttempts.WithLabelValues(string(job.TaskName), strconv.Itoa(job.Attempt)).Inc()

	hardCtx, cancel := context.WithTimeout(ctx, HardLimit)
	defer cancel()

	softTimer := time.AfterFunc(SoftLimit, func() {
		slog.Warn("lade: job exceeded soft limit, still running", "job_id", job.ID, "lease_id", job.LeaseID)
	})
	defer softTimer.Stop()

	// Carry the owning user's identity on the context rather than the
	// DiscoveryRunner signature, so a composition-root wrapper can resolve
	// the per-user CloudPort without widening this interface.
	userCtx := audit.WithUser(hardCtx, job.UserID)
	_, err := r.workflow.Execute(userCtx, job.LeaseID)

	switch {
	case err == nil:
		job.State = domain.JobDone
		r.statuses.put(job)
		telemetry.JobsCompleted.WithLabelValues(string(job.TaskName), "done").Inc()
	case errors.Is(hardCtx.Err(), context.DeadlineExceeded):
		job.LastError = "hard limit exceeded"
		if job.Attempt < r.policy.MaxAttempts {
			job.State = domain.JobTimedOut
			r.statuses.put(job)
			r.maybeRequeue(ctx, job)
		} else {
			job.State = domain.JobFailedTerminal
			r.statuses.put(job)
			telemetry.JobsCompleted.WithLabelValues(string(job.TaskName), "timed_out").Inc()
			slog.Error("lade: job timed out, retries exhausted", "job_id", job.ID, "lease_id", job.LeaseID, "attempt", job.Attempt)
		}
	default:
		job.LastError = err.Error()
		if r.policy.ShouldRetry(job.Attempt, err) {
			job.State = domain.JobFailedRetryable
			r.statuses.put(job)
			r.maybeRequeue(ctx, job)
		} else {
			job.State = domain.JobFailedTerminal
			r.statuses.put(job)
			telemetry.JobsCompleted.WithLabelValues(string(job.TaskName), "failed_terminal").Inc()
			slog.Error("lade: job failed terminal", "job_id", job.ID, "lease_id", job.LeaseID, "attempt", job.Attempt, "error", err)
		}
	}
}

func (r *Runner) maybeRequeue(ctx context.Context, job domain.WorkflowJob) {
	next := job
	next.Attempt++
	next.State = domain.JobQueued
	delay := r.policy.Delay(job.Attempt)

	time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := r.queue.Enqueue(ctx, next); err != nil {
			slog.Error("lade: requeue failed", "job_id", next.ID, "error", err)
			return
		}
		r.statuses.put(next)
	})
}

// Status returns the most recently observed state for a job id.
func (r *Runner) Status(id string) (domain.WorkflowJob, bool) {
	return r.statuses.get(id)
}

// List returns the bounded recent-job history, newest first.
func (r *Runner) List() []domain.WorkflowJob {
	return r.statuses.list()
}

// statusRing is a bounded, mutex-guarded ring of recent job states,
// index-ordered for eviction and keyed by job id for point lookups.
type statusRing struct {
	mu       sync.Mutex
	byID     map[string]domain.WorkflowJob
	order    []string
	capacity int
}

func newStatusRing(capacity int) *statusRing {
	return &statusRing{byID: map[string]domain.WorkflowJob{}, capacity: capacity}
}

func (s *statusRing) put(job domain.WorkflowJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[job.ID]; !exists {
		s.order = append(s.order, job.ID)
		if len(s.order) > s.capacity {
			evict := s.order[0]
			s.order = s.order[1:]
			delete(s.byID, evict)
		}
	}
	s.byID[job.ID] = job
}

func (s *statusRing) get(id string) (domain.WorkflowJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.byID[id]
	return job, ok
}

func (s *statusRing) list() []domain.WorkflowJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.WorkflowJob, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.byID[s.order[i]])
	}
	return out
}
