package retryqueue

import (
	"context"
	"sync"
	"time"

	"hookrelay/internal/constants"
	"hookrelay/internal/logger"
	"hookrelay/pkg/metrics"
	"hookrelay/pkg/retry"
)

// Sender delivers one payload to the backend and reports success. It must
// not enqueue on failure; the manager owns the retry budget.
type Sender func(ctx context.Context, payload map[string]interface{}) bool

type Config struct {
	Capacity     int
	MaxAttempts  int
	AttemptDelay time.Duration
}

// Item is a queued payload awaiting redelivery.
type Item struct {
	Payload       map[string]interface{}
	Attempts      int
	EnqueuedAt    time.Time
	LastAttemptAt time.Time
}

// Manager is a bounded, in-memory, FIFO holding area for payloads that
// failed to forward. A single drain goroutine is started lazily on the first
// enqueue and exits once the queue empties; it serializes attempts so retries
// never amplify backend load. Non-durable: a restart loses queued items.
type Manager struct {
	cfg  Config
	send Sender
	log  logger.Logger

	mu       sync.Mutex
	items    []*Item
	draining bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(cfg Config, send Sender, log logger.Logger) *Manager {
	if cfg.Capacity <= 0 {
		cfg.Capacity = constants.DefaultQueueCapacity
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = constants.DefaultMaxAttempts
	}
	if cfg.AttemptDelay <= 0 {
		cfg.AttemptDelay = constants.DefaultAttemptDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:    cfg,
		send:   send,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enqueue adds a payload for redelivery. When the queue is at capacity the
// payload is shed with a warning rather than blocking the caller.
func (m *Manager) Enqueue(payload map[string]interface{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) >= m.cfg.Capacity {
		m.log.Warnw("Retry queue full, dropping payload",
			"capacity", m.cfg.Capacity,
		)
		metrics.RetryQueueDroppedTotal.Inc()
		return false
	}

	m.items = append(m.items, &Item{
		Payload:    payload,
		EnqueuedAt: time.Now(),
	})
	metrics.RetryQueueDepth.Set(float64(len(m.items)))

	if !m.draining {
		m.draining = true
		m.wg.Add(1)
		go m.drain()
	}

	return true
}

// Depth returns the number of payloads currently queued.
func (m *Manager) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Stop cancels the drain loop and waits for it to exit. Queued payloads are
// abandoned; the upstream store retains the source-of-truth records.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) drain() {
	defer m.wg.Done()

	delay := retry.ConstantBackoff(m.cfg.AttemptDelay)

	for {
		m.mu.Lock()
		if len(m.items) == 0 || m.ctx.Err() != nil {
			m.draining = false
			m.mu.Unlock()
			return
		}
		item := m.items[0]
		m.mu.Unlock()

		item.Attempts++
		item.LastAttemptAt = time.Now()

		m.log.Infow("Retrying forward",
			"attempt", item.Attempts,
			"max_attempts", m.cfg.MaxAttempts,
		)

		if m.send(m.ctx, item.Payload) {
			m.remove()
			metrics.RetryQueueDeliveredTotal.Inc()
			continue
		}

		if item.Attempts >= m.cfg.MaxAttempts {
			m.log.Warnw("Max retry attempts reached, dropping payload",
				"attempts", item.Attempts,
			)
			m.remove()
			metrics.RetryQueueExhaustedTotal.Inc()
			continue
		}

		select {
		case <-m.ctx.Done():
		case <-time.After(delay.NextBackOff()):
		}
	}
}

// remove pops the head of the queue.
func (m *Manager) remove() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) > 0 {
		m.items = m.items[1:]
	}
	metrics.RetryQueueDepth.Set(float64(len(m.items)))
}
