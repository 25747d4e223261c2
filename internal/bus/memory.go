package bus

import (
	"context"
	"log"
	"sync"

	"github.com/gurkanbulca/taskflow/internal/models"
)

const defaultSubscriberBuffer = 64

// MemoryBus is a channel-backed EventBus for single-process deployments and
// tests. Each subscriber gets its own buffered channel; a subscriber that
// falls behind its buffer loses events, which is within the best-effort
// publish contract.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers []chan models.LifecycleEvent
	buffer      int
	closed      bool
}

// NewMemoryBus creates a bus with the default per-subscriber buffer.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{buffer: defaultSubscriberBuffer}
}

func (b *MemoryBus) Publish(ctx context.Context, event models.LifecycleEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}
	for _, sub := range b.subscribers {
		select {
		case sub <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			log.Printf("bus: dropping event %s (%s): subscriber buffer full", event.EventID, event.Type)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe() <-chan models.LifecycleEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan models.LifecycleEvent, b.buffer)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Close closes all subscriber channels. Publish after Close is a no-op.
func (b *MemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil
}
