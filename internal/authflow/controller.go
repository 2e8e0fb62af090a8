package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"packmill/internal/config"
	"packmill/internal/engine"
	"packmill/internal/logging"
	"packmill/internal/worker"
)

// Phase is the handshake state. It is driven entirely by server responses;
// the only local timer is the bounded resource-locked backoff.
type Phase string

const (
	PhaseDisconnected     Phase = "disconnected"
	PhaseConnecting       Phase = "connecting"
	PhaseAwaitingCode     Phase = "awaitingCode"
	PhaseAwaitingPassword Phase = "awaitingPassword"
	PhaseConnected        Phase = "connected"
)

var (
	// ErrWrongPhase is returned when a step is submitted out of order.
	ErrWrongPhase = errors.New("handshake step not valid in current phase")
	// ErrInvalidCode rejects codes that are not exactly five digits before
	// any request is made; validation never transitions state.
	ErrInvalidCode = errors.New("login code must be exactly 5 digits")
	// ErrEmptyPassword rejects blank passwords before submission.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrLockedOut surfaces the resource-locked condition after retries are
	// exhausted.
	ErrLockedOut = errors.New("account service is busy, try again later")
)

// AuthClient is the slice of the worker transport the handshake needs.
type AuthClient interface {
	Connect(ctx context.Context, creds worker.Credentials) (worker.AuthResult, error)
	VerifyCode(ctx context.Context, code string) (worker.AuthResult, error)
	VerifyPassword(ctx context.Context, password string) (worker.AuthResult, error)
}

// Controller is the handshake state machine. It holds the auth class slot in
// the shared registry for the duration of an active handshake, so two
// handshakes cannot run concurrently.
type Controller struct {
	client   AuthClient
	registry *engine.Registry
	logger   *slog.Logger

	maxRetries int
	backoff    time.Duration
	sleep      func(context.Context, time.Duration) error

	mu         sync.Mutex
	phase      Phase
	retryCount int
	handle     *engine.Handle
}

// Option configures optional controller behavior.
type Option func(*Controller)

// WithSleep overrides the backoff sleeper (used in tests).
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Controller) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// New constructs a handshake controller. registry may be nil when no class
// gating is wanted (tests).
func New(cfg *config.Config, client AuthClient, registry *engine.Registry, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		client:     client,
		registry:   registry,
		logger:     logging.NewComponentLogger(logger, "authflow"),
		maxRetries: cfg.Auth.MaxLockedRetries,
		backoff:    time.Duration(cfg.Auth.RetryBackoffMs) * time.Millisecond,
		sleep:      sleepContext,
		phase:      PhaseDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Phase returns the current handshake phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// RetryCount returns how many resource-locked retries the last Connect used.
func (c *Controller) RetryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryCount
}

// Connect submits credentials. Only valid from the disconnected phase. The
// transient resource-locked condition is retried with a linear backoff of
// retryCount * backoff; exhausting the retries returns to disconnected and
// surfaces ErrLockedOut.
func (c *Controller) Connect(ctx context.Context, creds worker.Credentials) error {
	c.mu.Lock()
	if c.phase != PhaseDisconnected {
		c.mu.Unlock()
		return fmt.Errorf("%w: connect from %s", ErrWrongPhase, c.phase)
	}
	if c.registry != nil {
		handle, err := c.registry.Acquire(engine.ClassAuth)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.handle = handle
	}
	c.phase = PhaseConnecting
	c.retryCount = 0
	c.mu.Unlock()

	for {
		result, err := c.client.Connect(ctx, creds)
		if err == nil {
			c.applyResult(result)
			return nil
		}
		if !worker.IsKind(err, worker.KindLocked) {
			c.fail()
			return err
		}

		c.mu.Lock()
		c.retryCount++
		attempt := c.retryCount
		c.mu.Unlock()
		if attempt >= c.maxRetries {
			c.logger.Warn("account service locked, retries exhausted", logging.Int("attempts", attempt))
			c.fail()
			return fmt.Errorf("%w: %v", ErrLockedOut, err)
		}
		delay := time.Duration(attempt) * c.backoff
		c.logger.Info("account service locked, backing off",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
		)
		if err := c.sleep(ctx, delay); err != nil {
			c.fail()
			return err
		}
	}
}

// SubmitCode answers the login-code challenge. Only valid from awaitingCode.
// A rejected code leaves the phase unchanged so the user can retry the same
// step.
func (c *Controller) SubmitCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if !validCode(code) {
		return ErrInvalidCode
	}
	c.mu.Lock()
	if c.phase != PhaseAwaitingCode {
		c.mu.Unlock()
		return fmt.Errorf("%w: code from %s", ErrWrongPhase, c.phase)
	}
	c.mu.Unlock()

	result, err := c.client.VerifyCode(ctx, code)
	if err != nil {
		return err
	}
	c.applyResult(result)
	return nil
}

// SubmitPassword answers the second-factor challenge. Only valid from
// awaitingPassword; a rejected password leaves the phase unchanged.
func (c *Controller) SubmitPassword(ctx context.Context, password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrEmptyPassword
	}
	c.mu.Lock()
	if c.phase != PhaseAwaitingPassword {
		c.mu.Unlock()
		return fmt.Errorf("%w: password from %s", ErrWrongPhase, c.phase)
	}
	c.mu.Unlock()

	result, err := c.client.VerifyPassword(ctx, password)
	if err != nil {
		return err
	}
	c.applyResult(result)
	return nil
}

func (c *Controller) applyResult(result worker.AuthResult) {
	c.mu.Lock()
	switch {
	case result.NeedsCode:
		c.phase = PhaseAwaitingCode
	case result.NeedsPassword:
		c.phase = PhaseAwaitingPassword
	default:
		c.phase = PhaseConnected
	}
	phase := c.phase
	handle := c.handle
	if phase == PhaseConnected {
		c.handle = nil
	}
	c.mu.Unlock()

	if phase == PhaseConnected && handle != nil {
		handle.Release()
	}
	c.logger.Info("handshake phase changed", logging.String("phase", string(phase)))
}

// fail returns the controller to disconnected and frees the auth slot.
func (c *Controller) fail() {
	c.mu.Lock()
	c.phase = PhaseDisconnected
	handle := c.handle
	c.handle = nil
	c.mu.Unlock()
	if handle != nil {
		handle.Release()
	}
}

func validCode(code string) bool {
	if len(code) != 5 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
