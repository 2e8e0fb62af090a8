package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"packmill/internal/logging"
)

// ErrAlreadyActive is returned when an operation of the requested class is
// already running or paused.
var ErrAlreadyActive = errors.New("operation class already active")

// Registry guarantees at most one active operation per class. Mutual
// exclusion is per class, not global: convert and patch may run concurrently
// with each other but never with themselves. When a lock directory is
// configured, a flock-backed lock file extends the guarantee across
// processes driving the same worker.
type Registry struct {
	lockDir string
	logger  *slog.Logger

	mu     sync.Mutex
	active map[Class]*Handle
}

// NewRegistry constructs a registry. lockDir may be empty to disable
// cross-process locking (tests mostly run without it).
func NewRegistry(lockDir string, logger *slog.Logger) *Registry {
	return &Registry{
		lockDir: lockDir,
		logger:  logging.NewComponentLogger(logger, "registry"),
		active:  make(map[Class]*Handle),
	}
}

// Handle represents an acquired class slot. Release is idempotent.
type Handle struct {
	class    Class
	registry *Registry
	fileLock *flock.Flock

	mu       sync.Mutex
	released bool
}

// Class returns the operation class the handle guards.
func (h *Handle) Class() Class { return h.class }

// Release frees the class slot and the backing lock file. Safe to call more
// than once.
func (h *Handle) Release() {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	h.mu.Unlock()

	if h.fileLock != nil {
		if err := h.fileLock.Unlock(); err != nil {
			h.registry.logger.Warn("release lock file failed", logging.Error(err), logging.String(logging.FieldClass, string(h.class)))
		}
	}

	h.registry.mu.Lock()
	if h.registry.active[h.class] == h {
		delete(h.registry.active, h.class)
	}
	h.registry.mu.Unlock()
}

// Acquire reserves the class slot, returning ErrAlreadyActive when an
// operation of that class is in flight. No network call is made here; the
// rejection is purely local.
func (r *Registry) Acquire(class Class) (*Handle, error) {
	r.mu.Lock()
	if _, exists := r.active[class]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyActive, class)
	}
	handle := &Handle{class: class, registry: r}
	r.active[class] = handle
	r.mu.Unlock()

	if r.lockDir != "" {
		fileLock, err := r.acquireFileLock(class)
		if err != nil {
			handle.Release()
			return nil, err
		}
		handle.fileLock = fileLock
	}
	return handle, nil
}

// Release frees the slot for a class. Calling it for an inactive class is a
// no-op.
func (r *Registry) Release(class Class) {
	r.mu.Lock()
	handle := r.active[class]
	r.mu.Unlock()
	if handle != nil {
		handle.Release()
	}
}

// Active reports whether a class slot is currently held.
func (r *Registry) Active(class Class) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.active[class]
	return exists
}

func (r *Registry) acquireFileLock(class Class) (*flock.Flock, error) {
	if err := os.MkdirAll(r.lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}
	fileLock := flock.New(filepath.Join(r.lockDir, string(class)+".lock"))
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire %s lock: %w", class, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s held by another process", ErrAlreadyActive, class)
	}
	return fileLock, nil
}
