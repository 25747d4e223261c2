package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/taskflow/internal/bus"
	"github.com/gurkanbulca/taskflow/internal/directory"
	"github.com/gurkanbulca/taskflow/internal/models"
	"github.com/gurkanbulca/taskflow/pkg/email"
)

func testDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		AdminRecipient: "admin@example.com",
		RetryLimit:     3,
		RetryBackoff:   time.Millisecond,
		DedupWindow:    time.Minute,
		AppName:        "TaskFlow",
	}
}

func newTestDispatcher(t *testing.T, cfg DispatcherConfig) (*NotificationDispatcher, *bus.MemoryBus, *email.MockSender) {
	t.Helper()

	eventBus := bus.NewMemoryBus()
	t.Cleanup(eventBus.Close)

	dir := directory.NewStaticDirectory(
		directory.User{ID: "alice", Email: "alice@example.com", Name: "Alice", Status: "CONFIRMED"},
		directory.User{ID: "bob", Email: "bob@example.com", Name: "Bob", Status: "CONFIRMED"},
	)
	sender := email.NewMockSender()
	dispatcher := NewNotificationDispatcher(eventBus, dir, sender, cfg)
	return dispatcher, eventBus, sender
}

func sampleTask() models.Task {
	now := time.Now().UTC()
	return models.Task{
		ID:           "task-1",
		Title:        "Write report",
		Description:  "Quarterly report",
		Assignee:     "alice",
		Deadline:     now.Add(24 * time.Hour),
		Status:       models.StatusPending,
		WarningsSent: models.WarningSet{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestNotificationDispatcher_Routing(t *testing.T) {
	tests := []struct {
		name          string
		eventType     models.EventType
		wantRecipient string
		wantSubject   string
	}{
		{
			name:          "task assigned goes to the assignee",
			eventType:     models.EventTaskAssigned,
			wantRecipient: "alice@example.com",
			wantSubject:   "New Task Assigned: Write report",
		},
		{
			name:          "status update goes to the admin",
			eventType:     models.EventTaskUpdated,
			wantRecipient: "admin@example.com",
			wantSubject:   "Task Status Updated: Write report",
		},
		{
			name:          "deadline warning goes to the assignee",
			eventType:     models.EventDeadlineWarning,
			wantRecipient: "alice@example.com",
			wantSubject:   "Task Deadline Approaching: Write report",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher, _, sender := newTestDispatcher(t, testDispatcherConfig())

			dispatcher.handleEvent(context.Background(), models.NewLifecycleEvent(tt.eventType, sampleTask()))
			dispatcher.Wait()

			sent := sender.GetSentEmails()
			require.Len(t, sent, 1)
			assert.Equal(t, tt.wantRecipient, sent[0].To)
			assert.Equal(t, tt.wantSubject, sent[0].Subject)
			assert.Contains(t, sent[0].Body, "Write report")
		})
	}
}

func TestNotificationDispatcher_MessageBodies(t *testing.T) {
	dispatcher, _, sender := newTestDispatcher(t, testDispatcherConfig())
	task := sampleTask()

	dispatcher.handleEvent(context.Background(), models.NewLifecycleEvent(models.EventTaskAssigned, task))
	dispatcher.Wait()

	last := sender.GetLastSentEmail()
	require.NotNil(t, last)
	assert.Contains(t, last.Body, "Quarterly report")
	assert.Contains(t, last.Body, task.Deadline.Format("January 2, 2006"))
	assert.Contains(t, last.Body, "TaskFlow")
}

func TestNotificationDispatcher_DeduplicatesByEventID(t *testing.T) {
	dispatcher, _, sender := newTestDispatcher(t, testDispatcherConfig())

	event := models.NewLifecycleEvent(models.EventTaskAssigned, sampleTask())

	// The bus redelivered the same emission.
	dispatcher.handleEvent(context.Background(), event)
	dispatcher.handleEvent(context.Background(), event)
	dispatcher.Wait()

	assert.Len(t, sender.GetSentEmails(), 1)
}

func TestNotificationDispatcher_DedupWindowExpires(t *testing.T) {
	cfg := testDispatcherConfig()
	cfg.DedupWindow = 10 * time.Millisecond
	dispatcher, _, sender := newTestDispatcher(t, cfg)

	event := models.NewLifecycleEvent(models.EventTaskAssigned, sampleTask())

	dispatcher.handleEvent(context.Background(), event)
	dispatcher.Wait()
	time.Sleep(20 * time.Millisecond)

	// Outside the window a redelivery goes through again: the guarantee is
	// at-least-once, not exactly-once.
	dispatcher.handleEvent(context.Background(), event)
	dispatcher.Wait()

	assert.Len(t, sender.GetSentEmails(), 2)
}

func TestNotificationDispatcher_RetriesTransientFailures(t *testing.T) {
	dispatcher, _, sender := newTestDispatcher(t, testDispatcherConfig())
	sender.FailTimes = 2 // two failures, the third attempt succeeds

	dispatcher.handleEvent(context.Background(), models.NewLifecycleEvent(models.EventTaskAssigned, sampleTask()))
	dispatcher.Wait()

	assert.Len(t, sender.GetSentEmails(), 1)
}

func TestNotificationDispatcher_ExhaustedRetriesReported(t *testing.T) {
	var mu sync.Mutex
	var failures []error

	cfg := testDispatcherConfig()
	cfg.OnDeliveryFailure = func(event models.LifecycleEvent, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, err)
	}

	dispatcher, _, sender := newTestDispatcher(t, cfg)
	sender.FailTimes = 3 // retry budget exhausted

	dispatcher.handleEvent(context.Background(), models.NewLifecycleEvent(models.EventTaskAssigned, sampleTask()))
	dispatcher.Wait()

	assert.Empty(t, sender.GetSentEmails())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failures, 1)
	assert.True(t, strings.Contains(failures[0].Error(), "after 3 attempts"))
}

func TestNotificationDispatcher_UnknownAssignee(t *testing.T) {
	var mu sync.Mutex
	var failures []error

	cfg := testDispatcherConfig()
	cfg.OnDeliveryFailure = func(event models.LifecycleEvent, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, err)
	}

	dispatcher, _, sender := newTestDispatcher(t, cfg)

	task := sampleTask()
	task.Assignee = "stranger"
	dispatcher.handleEvent(context.Background(), models.NewLifecycleEvent(models.EventTaskAssigned, task))
	dispatcher.Wait()

	assert.Empty(t, sender.GetSentEmails())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error(), "stranger")
}

func TestNotificationDispatcher_SlowDeliveryDoesNotBlockOthers(t *testing.T) {
	cfg := testDispatcherConfig()
	cfg.RetryLimit = 5
	cfg.RetryBackoff = 20 * time.Millisecond

	dispatcher, _, sender := newTestDispatcher(t, cfg)
	sender.FailTimes = 4 // first delivery spends ~300ms in backoff

	ctx := context.Background()
	dispatcher.handleEvent(ctx, models.NewLifecycleEvent(models.EventTaskAssigned, sampleTask()))
	dispatcher.handleEvent(ctx, models.NewLifecycleEvent(models.EventTaskUpdated, sampleTask()))

	// The admin notification lands while the first event is still retrying.
	require.Eventually(t, func() bool {
		for _, sent := range sender.GetSentEmails() {
			if sent.To == "admin@example.com" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	dispatcher.Wait()
	assert.Len(t, sender.GetSentEmails(), 2)
}

func TestNotificationDispatcher_RunConsumesFromBus(t *testing.T) {
	engineStoreBus := bus.NewMemoryBus()
	defer engineStoreBus.Close()

	dir := directory.NewStaticDirectory(directory.User{ID: "alice", Email: "alice@example.com"})
	sender := email.NewMockSender()
	dispatcher := NewNotificationDispatcher(engineStoreBus, dir, sender, testDispatcherConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Run(ctx)

	require.NoError(t, engineStoreBus.Publish(ctx, models.NewLifecycleEvent(models.EventTaskAssigned, sampleTask())))

	require.Eventually(t, func() bool {
		return len(sender.GetSentEmails()) == 1
	}, time.Second, 5*time.Millisecond)
}
