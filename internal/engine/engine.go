package engine

import (
	"context"
	"fmt"
	"log/slog"

	"packmill/internal/config"
	"packmill/internal/logging"
	"packmill/internal/worker"
)

// WorkerClient is the full transport surface the engine drives.
type WorkerClient interface {
	ProgressClient
	StartConvert(ctx context.Context, items []worker.StartItem, params worker.ConvertParams) (string, error)
	StartPatch(ctx context.Context, items []worker.StartItem, params worker.PatchParams) (string, error)
	StartPublish(ctx context.Context, items []worker.StartItem, params worker.PublishParams) (string, error)
}

// Engine is the caller-facing entry point: it owns the registry and turns
// start requests into monitored operations.
type Engine struct {
	cfg      *config.Config
	client   WorkerClient
	registry *Registry
	logger   *slog.Logger
	recorder Recorder
}

// EngineOption configures optional engine behavior.
type EngineOption func(*Engine)

// WithEngineRecorder attaches a history recorder to every started operation.
func WithEngineRecorder(recorder Recorder) EngineOption {
	return func(e *Engine) { e.recorder = recorder }
}

// New constructs an engine. The registry's cross-process locks live under
// cfg.LockDir.
func New(cfg *config.Config, client WorkerClient, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Engine{
		cfg:      cfg,
		client:   client,
		registry: NewRegistry(cfg.LockDir, logger),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the class gate, shared with the auth handshake.
func (e *Engine) Registry() *Registry { return e.registry }

// StartConvert begins a conversion operation over the given files.
func (e *Engine) StartConvert(ctx context.Context, paths []string, params worker.ConvertParams) (*Monitor, error) {
	return e.begin(ctx, ClassConvert, paths, func(ctx context.Context, items []worker.StartItem) (string, error) {
		return e.client.StartConvert(ctx, items, params)
	})
}

// StartPatch begins a binary metadata patch operation.
func (e *Engine) StartPatch(ctx context.Context, paths []string, params worker.PatchParams) (*Monitor, error) {
	return e.begin(ctx, ClassPatch, paths, func(ctx context.Context, items []worker.StartItem) (string, error) {
		return e.client.StartPatch(ctx, items, params)
	})
}

// StartPublish begins a pack publishing operation.
func (e *Engine) StartPublish(ctx context.Context, paths []string, params worker.PublishParams) (*Monitor, error) {
	return e.begin(ctx, ClassPublish, paths, func(ctx context.Context, items []worker.StartItem) (string, error) {
		return e.client.StartPublish(ctx, items, params)
	})
}

// begin acquires the class slot before any network call, starts the remote
// job, and wraps it in an unstarted monitor so callers can subscribe before
// the first tick.
func (e *Engine) begin(ctx context.Context, class Class, paths []string, start func(context.Context, []worker.StartItem) (string, error)) (*Monitor, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: no input files", class)
	}

	handle, err := e.registry.Acquire(class)
	if err != nil {
		return nil, err
	}

	items := NewItems(paths)
	startItems := make([]worker.StartItem, len(items))
	for i, item := range items {
		startItems[i] = worker.StartItem{Index: item.Index, Path: item.Path}
	}

	startCtx := logging.WithClass(ctx, string(class))
	id, err := start(startCtx, startItems)
	if err != nil {
		handle.Release()
		return nil, fmt.Errorf("start %s: %w", class, err)
	}

	op := NewOperation(id, class, e.cfg.Limits(string(class)))
	e.logger.Info("operation started",
		logging.String(logging.FieldOperationID, id),
		logging.String(logging.FieldClass, string(class)),
		logging.Int("items", len(items)),
		logging.Duration("poll_interval", op.PollInterval),
	)

	var opts []MonitorOption
	if e.recorder != nil {
		opts = append(opts, WithRecorder(e.recorder))
	}
	return NewMonitor(op, items, e.client, handle, e.logger, opts...), nil
}
