package authflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"packmill/internal/authflow"
	"packmill/internal/config"
	"packmill/internal/engine"
	"packmill/internal/logging"
	"packmill/internal/worker"
)

type authStep struct {
	result worker.AuthResult
	err    error
}

type scriptedAuth struct {
	connect  []authStep
	code     []authStep
	password []authStep
}

func pop(steps *[]authStep) authStep {
	if len(*steps) == 0 {
		return authStep{err: errors.New("unexpected call")}
	}
	step := (*steps)[0]
	*steps = (*steps)[1:]
	return step
}

func (s *scriptedAuth) Connect(context.Context, worker.Credentials) (worker.AuthResult, error) {
	step := pop(&s.connect)
	return step.result, step.err
}

func (s *scriptedAuth) VerifyCode(context.Context, string) (worker.AuthResult, error) {
	step := pop(&s.code)
	return step.result, step.err
}

func (s *scriptedAuth) VerifyPassword(context.Context, string) (worker.AuthResult, error) {
	step := pop(&s.password)
	return step.result, step.err
}

func newController(t *testing.T, client authflow.AuthClient) *authflow.Controller {
	t.Helper()
	cfg := config.Default()
	return authflow.New(&cfg, client, nil, logging.NewNop(),
		authflow.WithSleep(func(context.Context, time.Duration) error { return nil }))
}

func lockedErr() error {
	return &worker.RequestError{Kind: worker.KindLocked, Op: "connect"}
}

func TestFullChallengeSequence(t *testing.T) {
	client := &scriptedAuth{
		connect:  []authStep{{result: worker.AuthResult{NeedsCode: true}}},
		code:     []authStep{{result: worker.AuthResult{NeedsPassword: true}}},
		password: []authStep{{result: worker.AuthResult{OK: true}}},
	}
	ctrl := newController(t, client)
	ctx := context.Background()

	if err := ctrl.Connect(ctx, worker.Credentials{Account: "+15550100"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if ctrl.Phase() != authflow.PhaseAwaitingCode {
		t.Fatalf("phase = %q, want awaitingCode", ctrl.Phase())
	}

	if err := ctrl.SubmitCode(ctx, "12345"); err != nil {
		t.Fatalf("SubmitCode: %v", err)
	}
	if ctrl.Phase() != authflow.PhaseAwaitingPassword {
		t.Fatalf("phase = %q, want awaitingPassword", ctrl.Phase())
	}

	if err := ctrl.SubmitPassword(ctx, "x"); err != nil {
		t.Fatalf("SubmitPassword: %v", err)
	}
	if ctrl.Phase() != authflow.PhaseConnected {
		t.Fatalf("phase = %q, want connected", ctrl.Phase())
	}
}

func TestDirectConnect(t *testing.T) {
	client := &scriptedAuth{connect: []authStep{{result: worker.AuthResult{OK: true}}}}
	ctrl := newController(t, client)
	if err := ctrl.Connect(context.Background(), worker.Credentials{Account: "a"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if ctrl.Phase() != authflow.PhaseConnected {
		t.Fatalf("phase = %q", ctrl.Phase())
	}
}

func TestResourceLockedRetriesThenSucceeds(t *testing.T) {
	client := &scriptedAuth{connect: []authStep{
		{err: lockedErr()},
		{err: lockedErr()},
		{result: worker.AuthResult{OK: true}},
	}}

	var delays []time.Duration
	cfg := config.Default()
	ctrl := authflow.New(&cfg, client, nil, logging.NewNop(),
		authflow.WithSleep(func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		}))

	if err := ctrl.Connect(context.Background(), worker.Credentials{Account: "a"}); err != nil {
		t.Fatalf("Connect should succeed on third attempt: %v", err)
	}
	if ctrl.Phase() != authflow.PhaseConnected {
		t.Fatalf("phase = %q", ctrl.Phase())
	}
	if ctrl.RetryCount() != 2 {
		t.Fatalf("retry count = %d, want 2", ctrl.RetryCount())
	}
	// Linear backoff: attempt * base.
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(delays) != len(want) || delays[0] != want[0] || delays[1] != want[1] {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
}

func TestResourceLockedExhaustsRetries(t *testing.T) {
	client := &scriptedAuth{connect: []authStep{
		{err: lockedErr()},
		{err: lockedErr()},
		{err: lockedErr()},
	}}
	ctrl := newController(t, client)

	err := ctrl.Connect(context.Background(), worker.Credentials{Account: "a"})
	if !errors.Is(err, authflow.ErrLockedOut) {
		t.Fatalf("err = %v, want ErrLockedOut", err)
	}
	if ctrl.Phase() != authflow.PhaseDisconnected {
		t.Fatalf("phase = %q, want disconnected", ctrl.Phase())
	}
}

func TestRejectedCodeKeepsPhaseForRetry(t *testing.T) {
	client := &scriptedAuth{
		connect: []authStep{{result: worker.AuthResult{NeedsCode: true}}},
		code: []authStep{
			{err: &worker.RequestError{Kind: worker.KindRejected, Op: "verify-code"}},
			{result: worker.AuthResult{OK: true}},
		},
	}
	ctrl := newController(t, client)
	ctx := context.Background()

	if err := ctrl.Connect(ctx, worker.Credentials{Account: "a"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := ctrl.SubmitCode(ctx, "11111"); err == nil {
		t.Fatal("expected rejection")
	}
	// The user retries the same step without restarting the handshake.
	if ctrl.Phase() != authflow.PhaseAwaitingCode {
		t.Fatalf("phase = %q, want awaitingCode", ctrl.Phase())
	}
	if err := ctrl.SubmitCode(ctx, "22222"); err != nil {
		t.Fatalf("retry SubmitCode: %v", err)
	}
	if ctrl.Phase() != authflow.PhaseConnected {
		t.Fatalf("phase = %q", ctrl.Phase())
	}
}

func TestCodeValidationDoesNotTransition(t *testing.T) {
	client := &scriptedAuth{connect: []authStep{{result: worker.AuthResult{NeedsCode: true}}}}
	ctrl := newController(t, client)
	ctx := context.Background()

	if err := ctrl.Connect(ctx, worker.Credentials{Account: "a"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	for _, code := range []string{"", "1234", "123456", "12a45"} {
		if err := ctrl.SubmitCode(ctx, code); !errors.Is(err, authflow.ErrInvalidCode) {
			t.Fatalf("code %q: err = %v, want ErrInvalidCode", code, err)
		}
		if ctrl.Phase() != authflow.PhaseAwaitingCode {
			t.Fatalf("validation must not transition, phase = %q", ctrl.Phase())
		}
	}
}

func TestStepsRejectedOutOfPhase(t *testing.T) {
	ctrl := newController(t, &scriptedAuth{})
	ctx := context.Background()

	if err := ctrl.SubmitCode(ctx, "12345"); !errors.Is(err, authflow.ErrWrongPhase) {
		t.Fatalf("SubmitCode err = %v, want ErrWrongPhase", err)
	}
	if err := ctrl.SubmitPassword(ctx, "pw"); !errors.Is(err, authflow.ErrWrongPhase) {
		t.Fatalf("SubmitPassword err = %v, want ErrWrongPhase", err)
	}
}

func TestConnectHoldsAuthRegistrySlot(t *testing.T) {
	registry := engine.NewRegistry("", logging.NewNop())
	cfg := config.Default()
	client := &scriptedAuth{connect: []authStep{{result: worker.AuthResult{NeedsCode: true}}}}
	ctrl := authflow.New(&cfg, client, registry, logging.NewNop(),
		authflow.WithSleep(func(context.Context, time.Duration) error { return nil }))

	if err := ctrl.Connect(context.Background(), worker.Credentials{Account: "a"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !registry.Active(engine.ClassAuth) {
		t.Fatal("auth slot must be held while the handshake is pending")
	}

	// Completing the handshake frees the slot.
	client.code = []authStep{{result: worker.AuthResult{OK: true}}}
	if err := ctrl.SubmitCode(context.Background(), "12345"); err != nil {
		t.Fatalf("SubmitCode: %v", err)
	}
	if registry.Active(engine.ClassAuth) {
		t.Fatal("auth slot must be released once connected")
	}
}
