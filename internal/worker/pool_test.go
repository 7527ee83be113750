package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := NewPool(Config{WorkerCount: 3, QueueSize: 16, TaskTimeout: time.Second}, zerolog.Nop())
	p.Start(context.Background())

	var n atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.True(t, p.Submit("count", func(ctx context.Context) error {
			defer wg.Done()
			n.Add(1)
			return nil
		}))
	}
	wg.Wait()
	p.Stop(time.Second)
	assert.Equal(t, int32(10), n.Load())
}

func TestPool_DropsWhenQueueFull(t *testing.T) {
	p := NewPool(Config{WorkerCount: 1, QueueSize: 1, TaskTimeout: time.Second}, zerolog.Nop())
	release := make(chan struct{})
	started := make(chan struct{})
	p.Start(context.Background())

	require.True(t, p.Submit("block", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.True(t, p.Submit("queued", func(ctx context.Context) error { return nil }))
	assert.False(t, p.Submit("dropped", func(ctx context.Context) error { return nil }))

	close(release)
	p.Stop(time.Second)
	assert.False(t, p.Submit("after-stop", func(ctx context.Context) error { return nil }))
}

func TestPool_TaskTimeoutAndPanic(t *testing.T) {
	p := NewPool(Config{WorkerCount: 1, QueueSize: 4, TaskTimeout: 20 * time.Millisecond}, zerolog.Nop())
	p.Start(context.Background())

	timedOut := make(chan error, 1)
	require.True(t, p.Submit("panics", func(ctx context.Context) error { panic("boom") }))
	require.True(t, p.Submit("slow", func(ctx context.Context) error {
		<-ctx.Done()
		timedOut <- ctx.Err()
		return ctx.Err()
	}))

	select {
	case err := <-timedOut:
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	case <-time.After(2 * time.Second):
		t.Fatal("task context never expired")
	}
	p.Stop(time.Second)
}
