package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gurkanbulca/taskflow/internal/bus"
	"github.com/gurkanbulca/taskflow/internal/directory"
	"github.com/gurkanbulca/taskflow/internal/models"
	"github.com/gurkanbulca/taskflow/pkg/email"
)

// DispatcherConfig carries the notification dispatcher's tunables.
type DispatcherConfig struct {
	// AdminRecipient receives TASK_UPDATED notifications.
	AdminRecipient string
	// RetryLimit is the maximum number of delivery attempts per event.
	RetryLimit int
	// RetryBackoff is the initial backoff between attempts; it doubles after
	// each failure.
	RetryBackoff time.Duration
	// DedupWindow bounds how long an event id is remembered. Redeliveries
	// inside the window collapse to one delivery; the system-wide guarantee
	// stays at-least-once, never exactly-once.
	DedupWindow time.Duration
	// AppName appears in the rendered messages.
	AppName string
	// OnDeliveryFailure is invoked when an event exhausts its retries. Optional.
	OnDeliveryFailure func(event models.LifecycleEvent, err error)
}

// NotificationDispatcher consumes lifecycle events, resolves recipients
// through the directory and hands formatted messages to the delivery
// transport. A delivery failure is retried with exponential backoff on its own
// goroutine, so one slow event never blocks consumption of the rest; an
// exhausted retry budget is logged and never fails the task mutation that
// triggered the event.
type NotificationDispatcher struct {
	events    <-chan models.LifecycleEvent
	directory directory.Directory
	sender    email.Sender
	templates *email.Templates
	cfg       DispatcherConfig
	seen      *seenCache

	wg  sync.WaitGroup
	now func() time.Time
}

// NewNotificationDispatcher subscribes to the bus and prepares a dispatcher.
// Events published before Run starts are buffered by the subscription.
func NewNotificationDispatcher(eventBus bus.EventBus, dir directory.Directory, sender email.Sender, cfg DispatcherConfig) *NotificationDispatcher {
	return &NotificationDispatcher{
		events:    eventBus.Subscribe(),
		directory: dir,
		sender:    sender,
		templates: email.NewTemplates(),
		cfg:       cfg,
		seen:      newSeenCache(cfg.DedupWindow),
		now:       time.Now,
	}
}

// Run consumes events until ctx is cancelled or the subscription closes.
func (d *NotificationDispatcher) Run(ctx context.Context) {
	log.Printf("dispatcher: consuming lifecycle events (dedup window %v, retry limit %d)", d.cfg.DedupWindow, d.cfg.RetryLimit)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-d.events:
			if !ok {
				return
			}
			d.handleEvent(ctx, event)
		}
	}
}

// Wait blocks until all in-flight deliveries finish.
func (d *NotificationDispatcher) Wait() {
	d.wg.Wait()
}

// handleEvent deduplicates and hands the event to a delivery goroutine.
func (d *NotificationDispatcher) handleEvent(ctx context.Context, event models.LifecycleEvent) {
	if !d.seen.remember(event.EventID, d.now()) {
		log.Printf("dispatcher: duplicate event %s (%s), skipping", event.EventID, event.Type)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(ctx, event)
	}()
}

// deliver routes, renders and sends one event's notification.
func (d *NotificationDispatcher) deliver(ctx context.Context, event models.LifecycleEvent) {
	var (
		recipient string
		tmpl      email.Template
		err       error
	)

	switch event.Type {
	case models.EventTaskAssigned:
		recipient, err = d.resolveRecipient(ctx, event.Task.Assignee)
		tmpl = d.templates.TaskAssigned
	case models.EventTaskUpdated:
		recipient = d.cfg.AdminRecipient
		tmpl = d.templates.StatusUpdated
	case models.EventDeadlineWarning:
		recipient, err = d.resolveRecipient(ctx, event.Task.Assignee)
		tmpl = d.templates.DeadlineWarning
	default:
		log.Printf("dispatcher: unknown event type %q for event %s", event.Type, event.EventID)
		return
	}
	if err != nil {
		d.reportFailure(event, err)
		return
	}

	subject, body, err := tmpl.Render(&email.MessageData{
		Task:      event.Task,
		AppName:   d.cfg.AppName,
		Threshold: event.Threshold,
	})
	if err != nil {
		d.reportFailure(event, err)
		return
	}

	if err := d.sendWithRetry(ctx, recipient, subject, body); err != nil {
		d.reportFailure(event, err)
	}
}

// sendWithRetry attempts delivery up to the retry limit with doubling backoff.
func (d *NotificationDispatcher) sendWithRetry(ctx context.Context, recipient, subject, body string) error {
	backoff := d.cfg.RetryBackoff
	var lastErr error

	for attempt := 1; attempt <= d.cfg.RetryLimit; attempt++ {
		receipt, err := d.sender.Send(ctx, recipient, subject, body)
		if err == nil {
			log.Printf("dispatcher: delivered %s to %s", receipt.MessageID, recipient)
			return nil
		}
		lastErr = err

		if attempt < d.cfg.RetryLimit {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return fmt.Errorf("delivery to %s failed after %d attempts: %w", recipient, d.cfg.RetryLimit, lastErr)
}

// resolveRecipient maps an assignee id to a deliverable address through the
// directory.
func (d *NotificationDispatcher) resolveRecipient(ctx context.Context, assignee string) (string, error) {
	users, err := d.directory.ListUsers(ctx)
	if err != nil {
		return "", fmt.Errorf("list users: %w", err)
	}
	for _, user := range users {
		if user.ID == assignee {
			return user.Email, nil
		}
	}
	return "", fmt.Errorf("assignee %q not found in directory", assignee)
}

func (d *NotificationDispatcher) reportFailure(event models.LifecycleEvent, err error) {
	log.Printf("dispatcher: delivery failed for event %s (%s): %v", event.EventID, event.Type, err)
	if d.cfg.OnDeliveryFailure != nil {
		d.cfg.OnDeliveryFailure(event, err)
	}
}

// seenCache is a bounded, time-windowed record of event ids. Entries expire
// after the window; stale entries are pruned on every insert so the map never
// outgrows the redelivery horizon.
type seenCache struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]time.Time
}

func newSeenCache(window time.Duration) *seenCache {
	return &seenCache{
		window:  window,
		entries: make(map[string]time.Time),
	}
}

// remember returns true the first time an id is seen within the window.
func (c *seenCache) remember(id string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for seenID, seenAt := range c.entries {
		if now.Sub(seenAt) > c.window {
			delete(c.entries, seenID)
		}
	}

	if _, ok := c.entries[id]; ok {
		return false
	}
	c.entries[id] = now
	return true
}
