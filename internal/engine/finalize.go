package engine

import (
	"context"

	"packmill/internal/worker"
)

// Finalize applies the last snapshot, converges items the worker never
// reported individually, and emits the operation's single terminal event.
//
// Both the polling tick and an immediate-completion fast path may race to
// call it for very short operations; the per-operation finalized flag makes
// the second call a no-op.
func (m *Monitor) Finalize(ctx context.Context, last worker.ProgressSnapshot) {
	m.mu.Lock()
	if m.op.finalized {
		m.mu.Unlock()
		return
	}
	m.op.finalized = true
	terminal := StatusCompleted
	if last.Status == worker.OperationError {
		terminal = StatusError
	}
	m.op.Status = terminal
	m.mu.Unlock()

	Reconcile(m.items, last.ItemStatuses)

	// Items the worker only ever covered through aggregate counts still
	// converge to the operation's terminal status.
	for _, item := range m.items {
		if item.TerminalReached {
			continue
		}
		if terminal == StatusCompleted {
			item.markCompleted()
		} else {
			item.markError(last.ErrorMessage)
		}
	}

	summary := Summarize(m.items)
	m.publish(Event{Kind: EventTerminal, Snapshot: &last, Summary: &summary})
	m.record(ctx, terminal, summary, last.ErrorMessage)
	m.releaseSlot()
}
