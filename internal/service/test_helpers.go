// internal/service/test_helpers.go
package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/taskflow/internal/models"
	"github.com/gurkanbulca/taskflow/internal/store"
)

// flakyStore wraps a TaskStore and injects failures for specific calls.
type flakyStore struct {
	store.TaskStore

	// putFailures makes the next N Put calls fail with ErrAlreadyExists.
	putFailures int
	// condErr, when set, is returned by ConditionalUpdate for condErrTaskID
	// (or for every task when condErrTaskID is empty).
	condErr       error
	condErrTaskID string
}

func (f *flakyStore) Put(ctx context.Context, task models.Task) error {
	if f.putFailures > 0 {
		f.putFailures--
		return store.ErrAlreadyExists
	}
	return f.TaskStore.Put(ctx, task)
}

func (f *flakyStore) ConditionalUpdate(ctx context.Context, id string, expectedStatus models.Status, update store.TaskUpdate) (*models.Task, error) {
	if f.condErr != nil && (f.condErrTaskID == "" || f.condErrTaskID == id) {
		return nil, f.condErr
	}
	return f.TaskStore.ConditionalUpdate(ctx, id, expectedStatus, update)
}

// collectEvents waits for exactly n events on the subscription.
func collectEvents(t *testing.T, events <-chan models.LifecycleEvent, n int) []models.LifecycleEvent {
	t.Helper()

	collected := make([]models.LifecycleEvent, 0, n)
	for len(collected) < n {
		select {
		case event := <-events:
			collected = append(collected, event)
		case <-time.After(time.Second):
			require.Len(t, collected, n, "timed out waiting for events")
		}
	}
	return collected
}

// assertNoEvent verifies the subscription stays quiet.
func assertNoEvent(t *testing.T, events <-chan models.LifecycleEvent) {
	t.Helper()

	select {
	case event := <-events:
		t.Fatalf("unexpected event %s (%s)", event.EventID, event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}
