package engine

import (
	"context"

	"packmill/internal/worker"
)

// EventKind names the typed events a monitor emits.
type EventKind string

const (
	EventTick     EventKind = "tick"
	EventPaused   EventKind = "paused"
	EventResumed  EventKind = "resumed"
	EventTerminal EventKind = "terminal"
	EventAborted  EventKind = "aborted"
)

// Event carries one monitor notification. Delivery is synchronous on the
// monitor's polling goroutine, preserving receipt order.
type Event struct {
	Kind        EventKind
	Class       Class
	OperationID string

	// Changed is set on tick events when the reconciler observed a change.
	Changed bool
	// Snapshot accompanies tick and terminal events.
	Snapshot *worker.ProgressSnapshot
	// Summary accompanies the single terminal event.
	Summary *Summary
	// Reason accompanies aborted events.
	Reason AbortReason
}

// Subscriber receives monitor events. Subscribers must not block.
type Subscriber func(Event)

// Recorder persists finished operation outcomes.
type Recorder interface {
	RecordOperation(ctx context.Context, record OperationRecord) error
}
