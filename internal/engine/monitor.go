package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"packmill/internal/logging"
	"packmill/internal/worker"
)

// ProgressClient is the slice of the worker transport the monitor needs.
type ProgressClient interface {
	Progress(ctx context.Context, operationID string) (worker.ProgressSnapshot, error)
	Pause(ctx context.Context, operationID string) error
	Resume(ctx context.Context, operationID string) error
}

// Monitor owns the polling loop for one active operation. Ticks are strictly
// sequential: the next poll is scheduled only after the previous response
// has been fully processed, so snapshots are reconciled in receipt order and
// never overlap.
type Monitor struct {
	op       *Operation
	items    []*Item
	client   ProgressClient
	logger   *slog.Logger
	recorder Recorder
	handle   *Handle

	mu          sync.Mutex
	subscribers []Subscriber
	started     bool
	stopped     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// MonitorOption configures optional monitor behavior.
type MonitorOption func(*Monitor)

// WithRecorder attaches a history recorder invoked once per finished
// operation.
func WithRecorder(recorder Recorder) MonitorOption {
	return func(m *Monitor) { m.recorder = recorder }
}

// NewMonitor builds a monitor for an already-started worker operation. The
// handle may be nil when no registry slot guards the operation (tests).
func NewMonitor(op *Operation, items []*Item, client ProgressClient, handle *Handle, logger *slog.Logger, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		op:     op,
		items:  items,
		client: client,
		handle: handle,
		logger: logging.NewComponentLogger(logger, "monitor").With(
			logging.String(logging.FieldOperationID, op.ID),
			logging.String(logging.FieldClass, string(op.Class)),
		),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Operation returns the monitored operation's id.
func (m *Monitor) OperationID() string { return m.op.ID }

// Class returns the monitored operation's class.
func (m *Monitor) Class() Class { return m.op.Class }

// Items returns the item list the monitor reconciles into. The engine is the
// sole writer while the operation is active; readers must treat the slice as
// a read-only snapshot between events.
func (m *Monitor) Items() []*Item { return m.items }

// Status returns the operation's current local status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.op.Status
}

// ErrorCount returns the current consecutive poll failure count.
func (m *Monitor) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.op.ConsecutiveErrors
}

// Subscribe registers an event subscriber. Subscribe before Start; events
// are delivered synchronously from the polling goroutine.
func (m *Monitor) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

func (m *Monitor) publish(event Event) {
	event.Class = m.op.Class
	event.OperationID = m.op.ID
	m.mu.Lock()
	subscribers := make([]Subscriber, len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.Unlock()
	for _, fn := range subscribers {
		fn(event)
	}
}

// Start begins polling. The first poll happens after one interval.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("monitor already started")
	}
	m.started = true
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop halts polling without emitting events. Idempotent, including after
// the monitor has already reached a terminal state. An in-flight poll is
// allowed to complete; its result is discarded.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped || !m.started {
		m.stopped = true
		m.mu.Unlock()
		return
	}
	m.stopped = true
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-m.done
}

// Wait blocks until polling has finished or ctx is cancelled.
func (m *Monitor) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return nil
	}
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	timer := time.NewTimer(m.op.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if terminal := m.tick(ctx); terminal {
			return
		}
		// Re-arm only after the previous tick is fully processed.
		timer.Reset(m.op.PollInterval)
	}
}

// tick performs one poll and reports whether polling should end.
func (m *Monitor) tick(ctx context.Context) bool {
	if m.op.MaxDuration > 0 && time.Since(m.op.StartedAt) > m.op.MaxDuration {
		m.abort(ctx, ReasonTimeout)
		return true
	}

	tickCtx := logging.WithOperationID(ctx, m.op.ID)
	tickCtx = logging.WithCorrelationID(tickCtx, uuid.NewString())
	snap, err := m.client.Progress(tickCtx, m.op.ID)
	if ctx.Err() != nil {
		// Stopped while the request was in flight; discard the result.
		return true
	}
	if err != nil {
		return m.handlePollError(ctx, err)
	}

	m.mu.Lock()
	m.op.ConsecutiveErrors = 0
	m.mu.Unlock()

	changed := Reconcile(m.items, snap.ItemStatuses)
	m.publish(Event{Kind: EventTick, Changed: changed, Snapshot: &snap})

	if snap.Status.IsTerminal() {
		m.Finalize(ctx, snap)
		return true
	}
	return false
}

// handlePollError absorbs a single transport failure, aborting only when the
// consecutive threshold is reached. Any successful poll resets the counter.
func (m *Monitor) handlePollError(ctx context.Context, err error) bool {
	m.mu.Lock()
	m.op.ConsecutiveErrors++
	count := m.op.ConsecutiveErrors
	threshold := m.op.MaxConsecutiveErrors
	m.mu.Unlock()

	m.logger.Warn("progress poll failed",
		logging.Error(err),
		logging.Int("consecutive_errors", count),
		logging.Int("threshold", threshold),
	)
	if count >= threshold {
		m.abort(ctx, ReasonPersistentError)
		return true
	}
	return false
}

// Pause requests a remote pause. Rejected locally (returning false, no
// network call) unless the operation is currently running.
func (m *Monitor) Pause(ctx context.Context) bool {
	m.mu.Lock()
	if m.op.Status != StatusRunning {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	if err := m.client.Pause(ctx, m.op.ID); err != nil {
		m.logger.Warn("pause request failed", logging.Error(err))
		return false
	}

	m.mu.Lock()
	if m.op.Status != StatusRunning {
		m.mu.Unlock()
		return false
	}
	m.op.Status = StatusPaused
	m.mu.Unlock()

	m.publish(Event{Kind: EventPaused})
	return true
}

// Resume requests a remote resume. Rejected locally unless the operation is
// currently paused.
func (m *Monitor) Resume(ctx context.Context) bool {
	m.mu.Lock()
	if m.op.Status != StatusPaused {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	if err := m.client.Resume(ctx, m.op.ID); err != nil {
		m.logger.Warn("resume request failed", logging.Error(err))
		return false
	}

	m.mu.Lock()
	if m.op.Status != StatusPaused {
		m.mu.Unlock()
		return false
	}
	m.op.Status = StatusRunning
	m.mu.Unlock()

	m.publish(Event{Kind: EventResumed})
	return true
}

// abort force-terminates the operation without applying any snapshot to the
// items: they remain at their last good state.
func (m *Monitor) abort(ctx context.Context, reason AbortReason) {
	m.mu.Lock()
	if m.op.finalized {
		m.mu.Unlock()
		return
	}
	m.op.finalized = true
	if reason == ReasonTimeout {
		m.op.Status = StatusTimedOut
	} else {
		m.op.Status = StatusError
	}
	status := m.op.Status
	m.mu.Unlock()

	m.logger.Error("operation aborted",
		logging.String("reason", string(reason)),
		logging.Duration("elapsed", time.Since(m.op.StartedAt)),
	)
	m.publish(Event{Kind: EventAborted, Reason: reason})
	m.record(ctx, status, Summarize(m.items), string(reason))
	m.releaseSlot()
}

func (m *Monitor) releaseSlot() {
	if m.handle != nil {
		m.handle.Release()
	}
}

func (m *Monitor) record(ctx context.Context, status Status, summary Summary, errorMessage string) {
	if m.recorder == nil {
		return
	}
	record := OperationRecord{
		OperationID:  m.op.ID,
		Class:        m.op.Class,
		Status:       status,
		SuccessCount: summary.SuccessCount,
		FailureCount: summary.FailureCount,
		TotalCount:   summary.TotalCount,
		ErrorMessage: errorMessage,
		StartedAt:    m.op.StartedAt,
		FinishedAt:   time.Now(),
	}
	if err := m.recorder.RecordOperation(ctx, record); err != nil {
		m.logger.Warn("record operation outcome failed", logging.Error(err))
	}
}
