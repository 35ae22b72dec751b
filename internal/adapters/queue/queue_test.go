package queue

import (
	"context"
	"testing"
	"time"

	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_EnqueueDequeueFIFO(t *testing.T) {
	q := NewMemoryQueue(10)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, domain.WorkflowJob{ID: "a"}))
	require.NoError(t, q.Enqueue(ctx, domain.WorkflowJob{ID: "b"}))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", first.ID)

	n, _ = q.Len(ctx)
	assert.Equal(t, 1, n)
}

func TestMemoryQueue_DequeueRespectsCancellation(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.Error(t, err)
}

func TestMemoryDedupStore_TryAcquireBlocksSecondHolder(t *testing.T) {
	s := NewMemoryDedupStore(time.Hour)
	defer s.Close()
	ctx := context.Background()

	ok1, err := s.TryAcquire(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok1)

	ok2, err := s.TryAcquire(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok2)
}

func TestMemoryDedupStore_ReleaseAllowsReacquire(t *testing.T) {
	s := NewMemoryDedupStore(time.Hour)
	defer s.Close()
	ctx := context.Background()

	_, _ = s.TryAcquire(ctx, "k1", time.Minute)
	require.NoError(t, s.Release(ctx, "k1"))

	ok, err := s.TryAcquire(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryDedupStore_ExpiresAfterTTL(t *testing.T) {
	s := NewMemoryDedupStore(time.Hour)
	defer s.Close()
	ctx := context.Background()

	_, _ = s.TryAcquire(ctx, "k1", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	ok, err := s.TryAcquire(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
