// Package bus propagates lifecycle events between the services. Delivery is
// at-least-once: a broker-backed implementation may redeliver, so consumers
// deduplicate by event id.
package bus

import (
	"context"

	"github.com/gurkanbulca/taskflow/internal/models"
)

// EventBus is the publish/subscribe channel between the lifecycle engine, the
// deadline scanner and the notification dispatcher.
type EventBus interface {
	// Publish sends an event to all current subscribers. Best-effort: the
	// transport may delay or drop events, and publishing must not block the
	// caller indefinitely.
	Publish(ctx context.Context, event models.LifecycleEvent) error

	// Subscribe returns an unbounded stream of events. The stream is not
	// restartable; each subscriber sees events published after it subscribed.
	Subscribe() <-chan models.LifecycleEvent
}
