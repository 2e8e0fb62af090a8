package engine

import (
	"time"

	"packmill/internal/config"
)

// Class is the operation kind used as the mutual-exclusion key.
type Class string

const (
	ClassConvert Class = "convert"
	ClassPatch   Class = "patch"
	ClassPublish Class = "publish"
	ClassAuth    Class = "auth"
)

// Status is the local lifecycle of an operation. Transitions are monotonic:
// running may move to paused or a terminal status, paused back to running,
// and no transition leaves a terminal status.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusTimedOut  Status = "timed_out"
)

// IsTerminal reports whether the status permanently ends an operation.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusTimedOut
}

// AbortReason names why an operation was aborted locally.
type AbortReason string

const (
	// ReasonPersistentError fires when consecutive poll failures reach the
	// configured threshold.
	ReasonPersistentError AbortReason = "persistent-error"
	// ReasonTimeout fires when the wall-clock budget is exceeded, protecting
	// against a worker that stalls without ever reporting an error.
	ReasonTimeout AbortReason = "timeout"
)

// Operation tracks one remote job by its worker-issued opaque id.
type Operation struct {
	ID                   string
	Class                Class
	StartedAt            time.Time
	Status               Status
	ConsecutiveErrors    int
	PollInterval         time.Duration
	MaxConsecutiveErrors int
	MaxDuration          time.Duration

	finalized bool
}

// NewOperation builds a running operation from class limits.
func NewOperation(id string, class Class, limits config.ClassLimits) *Operation {
	return &Operation{
		ID:                   id,
		Class:                class,
		StartedAt:            time.Now(),
		Status:               StatusRunning,
		PollInterval:         time.Duration(limits.PollIntervalMs) * time.Millisecond,
		MaxConsecutiveErrors: limits.MaxConsecutiveErrors,
		MaxDuration:          time.Duration(limits.MaxDurationSeconds) * time.Second,
	}
}

// OperationRecord is the persisted outcome of a finished operation.
type OperationRecord struct {
	OperationID  string
	Class        Class
	Status       Status
	SuccessCount int
	FailureCount int
	TotalCount   int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}
