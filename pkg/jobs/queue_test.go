package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	q := NewQueue("cache", func(_ context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		keys = append(keys, job.Key)
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "invalidate", Key: "rules:rs-1"}))
	require.NoError(t, q.TryEnqueue(Job{Type: "invalidate", Key: "rules:rs-2"}))
	q.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"rules:rs-1", "rules:rs-2"}, keys)
}

func TestQueueRetriesThenDrops(t *testing.T) {
	var attempts int32
	var dropped atomic.Value
	q := NewQueue("cache", func(context.Context, Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("redis down")
	}, QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond, OnDrop: func(job Job, _ error) { dropped.Store(job.Key) }})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Key: "active:p1"}))
	q.Wait()

	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Equal(t, "active:p1", dropped.Load())
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("cache", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{}))
	assert.Error(t, q.TryEnqueue(Job{}))
}
