package retryqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookrelay/internal/logger"
)

func testConfig() Config {
	return Config{
		Capacity:     100,
		MaxAttempts:  3,
		AttemptDelay: time.Millisecond,
	}
}

func TestEnqueueShedsAtCapacity(t *testing.T) {
	release := make(chan struct{})
	blocked := func(ctx context.Context, payload map[string]interface{}) bool {
		<-release
		return true
	}

	m := NewManager(testConfig(), blocked, logger.NopLogger())
	defer func() {
		close(release)
		m.Stop()
	}()

	accepted := 0
	for i := 0; i < 101; i++ {
		if m.Enqueue(map[string]interface{}{"n": i}) {
			accepted++
		}
	}

	assert.Equal(t, 100, accepted)
	assert.Equal(t, 100, m.Depth())
}

func TestItemExhaustsAfterMaxAttempts(t *testing.T) {
	var attempts atomic.Int32
	failing := func(ctx context.Context, payload map[string]interface{}) bool {
		attempts.Add(1)
		return false
	}

	m := NewManager(testConfig(), failing, logger.NopLogger())
	defer m.Stop()

	m.Enqueue(map[string]interface{}{"doomed": true})

	require.Eventually(t, func() bool {
		return m.Depth() == 0
	}, 2*time.Second, 5*time.Millisecond)

	// never a 4th attempt
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestSuccessfulDeliveryRemovesItem(t *testing.T) {
	var delivered atomic.Int32
	ok := func(ctx context.Context, payload map[string]interface{}) bool {
		delivered.Add(1)
		return true
	}

	m := NewManager(testConfig(), ok, logger.NopLogger())
	defer m.Stop()

	m.Enqueue(map[string]interface{}{"n": 1})

	require.Eventually(t, func() bool {
		return m.Depth() == 0
	}, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), delivered.Load())
}

func TestDrainPreservesFIFOOrder(t *testing.T) {
	var mu sync.Mutex
	var order []int
	ok := func(ctx context.Context, payload map[string]interface{}) bool {
		mu.Lock()
		order = append(order, payload["n"].(int))
		mu.Unlock()
		return true
	}

	m := NewManager(testConfig(), ok, logger.NopLogger())
	defer m.Stop()

	for i := 0; i < 5; i++ {
		m.Enqueue(map[string]interface{}{"n": i})
	}

	require.Eventually(t, func() bool {
		return m.Depth() == 0
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestDrainRestartsAfterQueueEmpties(t *testing.T) {
	var delivered atomic.Int32
	ok := func(ctx context.Context, payload map[string]interface{}) bool {
		delivered.Add(1)
		return true
	}

	m := NewManager(testConfig(), ok, logger.NopLogger())
	defer m.Stop()

	m.Enqueue(map[string]interface{}{"n": 1})
	require.Eventually(t, func() bool { return m.Depth() == 0 }, time.Second, time.Millisecond)

	m.Enqueue(map[string]interface{}{"n": 2})
	require.Eventually(t, func() bool { return m.Depth() == 0 }, time.Second, time.Millisecond)

	assert.Equal(t, int32(2), delivered.Load())
}

func TestStopAbandonsQueuedItems(t *testing.T) {
	release := make(chan struct{})
	blocked := func(ctx context.Context, payload map[string]interface{}) bool {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return false
	}

	m := NewManager(testConfig(), blocked, logger.NopLogger())
	m.Enqueue(map[string]interface{}{"n": 1})
	m.Enqueue(map[string]interface{}{"n": 2})

	close(release)
	m.Stop()
}
