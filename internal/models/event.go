package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	// EventTaskAssigned - a task was created and assigned.
	EventTaskAssigned EventType = "TASK_ASSIGNED"
	// EventTaskUpdated - a task changed status.
	EventTaskUpdated EventType = "TASK_UPDATED"
	// EventDeadlineWarning - a task crossed a warning threshold before its deadline.
	EventDeadlineWarning EventType = "DEADLINE_WARNING"
)

// ParseEventType converts a raw string to an EventType.
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventTaskAssigned, EventTaskUpdated, EventDeadlineWarning:
		return EventType(s), nil
	default:
		return "", fmt.Errorf("unknown event type: %q", s)
	}
}

// LifecycleEvent describes a single task state change. The bus may redeliver
// an event; EventID is unique per emission so consumers can deduplicate.
type LifecycleEvent struct {
	EventID   string    `json:"event_id"`
	Type      EventType `json:"type"`
	Task      Task      `json:"task"`
	// Threshold is the warning-threshold id, set only for DEADLINE_WARNING.
	Threshold string    `json:"threshold,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}

// NewLifecycleEvent builds an event with a fresh EventID around a task snapshot.
func NewLifecycleEvent(eventType EventType, task Task) LifecycleEvent {
	return LifecycleEvent{
		EventID:   uuid.New().String(),
		Type:      eventType,
		Task:      task,
		EmittedAt: time.Now().UTC(),
	}
}
