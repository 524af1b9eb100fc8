package build

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/semtex/internal/queue"
)

func TestDefaultWorkerCount(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultWorkerCount(), 2)
}

func TestWorkerPoolStartsOnce(t *testing.T) {
	shared := newTestShared()
	pool := NewWorkerPool(3, time.Millisecond, shared, func(context.Context, queue.Entry) {})

	var starts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if pool.Start(context.Background()) {
				starts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), starts.Load())
	assert.True(t, pool.Started())
	require.NoError(t, pool.Stop())
}

func TestWorkerPoolProcessesEverything(t *testing.T) {
	shared := newTestShared()

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
	)
	pool := NewWorkerPool(4, time.Millisecond, shared, func(_ context.Context, e queue.Entry) {
		mu.Lock()
		seen[e.Path]++
		mu.Unlock()
	})

	const n = 100
	for i := 0; i < n; i++ {
		shared.Queue.Enqueue(queue.Entry{Path: fmt.Sprintf("f%d.stex", i)})
	}
	pool.Start(context.Background())

	require.Eventually(t, func() bool {
		return shared.Queue.Empty() && !pool.AnyBusy()
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, pool.Stop())

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, n)
	for path, count := range seen {
		assert.Equal(t, 1, count, path)
	}
}

func TestWorkerPoolBusyWhileProcessing(t *testing.T) {
	shared := newTestShared()
	release := make(chan struct{})
	entered := make(chan struct{})

	pool := NewWorkerPool(2, time.Millisecond, shared, func(context.Context, queue.Entry) {
		close(entered)
		<-release
	})
	shared.Queue.Enqueue(queue.Entry{Path: "slow.stex"})
	pool.Start(context.Background())

	<-entered
	assert.True(t, pool.AnyBusy())

	close(release)
	require.Eventually(t, func() bool { return !pool.AnyBusy() }, 5*time.Second, time.Millisecond)
	require.NoError(t, pool.Stop())
}

func TestWorkerPoolStopsTakingWorkAfterError(t *testing.T) {
	shared := newTestShared()
	var processed atomic.Int32

	pool := NewWorkerPool(2, time.Millisecond, shared, func(context.Context, queue.Entry) {
		processed.Add(1)
	})

	shared.Fail(fmt.Errorf("earlier failure"))
	shared.Queue.Enqueue(queue.Entry{Path: "a.stex"})
	shared.Queue.Enqueue(queue.Entry{Path: "b.stex"})
	pool.Start(context.Background())

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, pool.Stop())

	assert.Zero(t, processed.Load())
	assert.Equal(t, 2, shared.Queue.Len())
}

func TestWorkerPoolStopWithoutStart(t *testing.T) {
	pool := NewWorkerPool(0, 0, newTestShared(), func(context.Context, queue.Entry) {})
	assert.Equal(t, DefaultWorkerCount(), pool.Size())
	assert.False(t, pool.AnyBusy())
	assert.NoError(t, pool.Stop())
	assert.NoError(t, pool.Stop())
}
