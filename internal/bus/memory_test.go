package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/taskflow/internal/models"
)

func TestMemoryBusFanOut(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()

	first := b.Subscribe()
	second := b.Subscribe()

	event := models.NewLifecycleEvent(models.EventTaskAssigned, models.Task{ID: "task-1"})
	require.NoError(t, b.Publish(context.Background(), event))

	for _, sub := range []<-chan models.LifecycleEvent{first, second} {
		select {
		case got := <-sub:
			assert.Equal(t, event.EventID, got.EventID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestMemoryBusLateSubscriberMissesEarlierEvents(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()

	require.NoError(t, b.Publish(context.Background(), models.NewLifecycleEvent(models.EventTaskAssigned, models.Task{ID: "task-1"})))

	sub := b.Subscribe()
	select {
	case event := <-sub:
		t.Fatalf("unexpected event %s", event.EventID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBusFullSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()

	b.Subscribe() // never drained

	ctx := context.Background()
	for i := 0; i < defaultSubscriberBuffer+10; i++ {
		require.NoError(t, b.Publish(ctx, models.NewLifecycleEvent(models.EventTaskUpdated, models.Task{ID: "task-1"})))
	}
}

func TestMemoryBusClose(t *testing.T) {
	b := NewMemoryBus()
	sub := b.Subscribe()
	b.Close()

	_, ok := <-sub
	assert.False(t, ok, "subscription channel should be closed")

	// Publish after close is a no-op.
	require.NoError(t, b.Publish(context.Background(), models.NewLifecycleEvent(models.EventTaskAssigned, models.Task{})))
}
