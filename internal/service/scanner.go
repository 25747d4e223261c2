package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gurkanbulca/taskflow/internal/bus"
	"github.com/gurkanbulca/taskflow/internal/models"
	"github.com/gurkanbulca/taskflow/internal/store"
)

// ScannerConfig carries the deadline scanner's tunables.
type ScannerConfig struct {
	// Interval between sweeps.
	Interval time.Duration
	// Thresholds are the lead times before a deadline at which a one-time
	// warning is due. Each threshold fires at most once per task.
	Thresholds []time.Duration
}

// DeadlineScanner periodically sweeps the active tasks and emits one
// DEADLINE_WARNING per task per crossed threshold. The already-emitted
// thresholds are recorded on the task itself, so overlapping scanner instances
// and repeated sweeps stay deduplicated through the store's conditional write.
type DeadlineScanner struct {
	store      store.TaskStore
	bus        bus.EventBus
	interval   time.Duration
	thresholds []time.Duration

	now func() time.Time
}

// NewDeadlineScanner creates a scanner over the given store and bus.
func NewDeadlineScanner(taskStore store.TaskStore, eventBus bus.EventBus, cfg ScannerConfig) *DeadlineScanner {
	return &DeadlineScanner{
		store:      taskStore,
		bus:        eventBus,
		interval:   cfg.Interval,
		thresholds: cfg.Thresholds,
		now:        time.Now,
	}
}

// Run sweeps once immediately and then on every interval tick until ctx is
// cancelled.
func (s *DeadlineScanner) Run(ctx context.Context) {
	log.Printf("scanner: starting deadline sweep every %v (thresholds: %v)", s.interval, s.thresholds)

	if err := s.RunScan(ctx); err != nil {
		log.Printf("scanner: sweep failed: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunScan(ctx); err != nil {
				log.Printf("scanner: sweep failed: %v", err)
			}
		}
	}
}

// RunScan performs a single sweep over all non-terminal tasks. A failure on
// one task is logged and never aborts the rest of the sweep; cancellation is
// honored between tasks, never mid-update.
func (s *DeadlineScanner) RunScan(ctx context.Context) error {
	tasks, err := s.store.Scan(ctx, store.ScanFilter{
		Statuses: []models.Status{models.StatusPending, models.StatusInProgress},
	})
	if err != nil {
		return fmt.Errorf("scan active tasks: %w", err)
	}

	for _, task := range tasks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.checkTask(ctx, task); err != nil {
			log.Printf("scanner: task %s: %v", task.ID, err)
		}
	}
	return nil
}

// checkTask records and emits the warnings for every threshold the task has
// newly crossed. The threshold ids are marked on the task first, conditional
// on the status read during the sweep; the events are published only after the
// mark committed, so a duplicate sweep can never emit the same threshold twice.
func (s *DeadlineScanner) checkTask(ctx context.Context, task models.Task) error {
	if task.Status.Terminal() {
		return nil
	}

	now := s.now().UTC()
	warnings := task.WarningsSent
	var crossed []string

	for _, threshold := range s.thresholds {
		id := threshold.String()
		if warnings.Contains(id) {
			continue
		}
		if task.Deadline.Sub(now) <= threshold {
			warnings = warnings.With(id)
			crossed = append(crossed, id)
		}
	}
	if len(crossed) == 0 {
		return nil
	}

	updated, err := s.store.ConditionalUpdate(ctx, task.ID, task.Status, store.TaskUpdate{
		Status:       task.Status,
		WarningsSent: warnings,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			// Stale read: the task moved under us. The next sweep re-reads it.
			return fmt.Errorf("skipping stale task: %w", err)
		}
		return fmt.Errorf("record warnings: %w", err)
	}

	for _, id := range crossed {
		event := models.NewLifecycleEvent(models.EventDeadlineWarning, *updated)
		event.Threshold = id
		if err := s.bus.Publish(ctx, event); err != nil {
			log.Printf("scanner: publish warning %s for task %s failed: %v", id, task.ID, err)
		}
	}
	return nil
}
