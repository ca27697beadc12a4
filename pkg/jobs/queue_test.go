package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue("email", "payload")
	require.NoError(t, err)

	select {
	case job := <-done:
		assert.Equal(t, id, job.ID)
		assert.Equal(t, "email", job.Kind)
		assert.Equal(t, "payload", job.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("retry", func(_ context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("temporary")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue("email", nil)
	require.NoError(t, err)

	select {
	case <-done:
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
}

func TestQueueRejectsWhenStoppedOrFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, _ Job) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})

	_, err := q.Enqueue("email", nil)
	assert.ErrorIs(t, err, ErrNotStarted)

	q.Start(context.Background())
	var full error
	for i := 0; i < 5 && full == nil; i++ {
		_, full = q.Enqueue("email", nil)
	}
	assert.ErrorIs(t, full, ErrQueueFull)

	close(block)
	q.Stop()
	_, err = q.Enqueue("email", nil)
	assert.ErrorIs(t, err, ErrNotStarted)
}
