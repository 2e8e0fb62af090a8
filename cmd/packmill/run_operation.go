package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"packmill/internal/engine"
	"packmill/internal/history"
	"packmill/internal/logging"
	"packmill/internal/notifications"
)

type operationStarter func(ctx context.Context, eng *engine.Engine) (*engine.Monitor, error)

// runOperation drives one foreground operation: start, poll until terminal,
// print live progress, render the per-item outcome, push a notification, and
// map the result onto the exit code.
func runOperation(cctx *commandContext, cmd *cobra.Command, start operationStarter) error {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cctx.ensureLogger()
	if err != nil {
		return err
	}
	client, err := cctx.workerClient()
	if err != nil {
		return err
	}

	engineOpts := []engine.EngineOption{}
	store, err := history.Open(cfg)
	if err != nil {
		logger.Warn("history store unavailable", logging.Error(err))
	} else {
		defer store.Close()
		engineOpts = append(engineOpts, engine.WithEngineRecorder(store))
	}
	eng := engine.New(cfg, client, logger, engineOpts...)

	runCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mon, err := start(runCtx, eng)
	if err != nil {
		if errors.Is(err, engine.ErrAlreadyActive) {
			return fmt.Errorf("%v; wait for it to finish or check another packmill process", err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	printer := newProgressPrinter(out)
	mon.Subscribe(printer.observe)

	if err := mon.Start(runCtx); err != nil {
		return err
	}
	if err := mon.Wait(runCtx); err != nil {
		mon.Stop()
		return err
	}

	status := mon.Status()
	summary := engine.Summarize(mon.Items())
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderItemTable(mon.Items()))

	notifier := notifications.NewService(cfg)
	notifyCtx := context.Background()
	if reason := printer.abortReason(); reason != "" {
		if err := notifier.NotifyOperationAborted(notifyCtx, string(mon.Class()), reason); err != nil {
			logger.Warn("abort notification failed", logging.Error(err))
		}
		return fmt.Errorf("%s aborted: %s", mon.Class(), reason)
	}
	if err := notifier.NotifyOperationCompleted(notifyCtx, string(mon.Class()), summary.SuccessCount, summary.FailureCount, summary.TotalCount); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}

	if status != engine.StatusCompleted {
		return fmt.Errorf("%s finished with status %s", mon.Class(), status)
	}
	if summary.FailureCount > 0 {
		return fmt.Errorf("%s finished with %d of %d items failed", mon.Class(), summary.FailureCount, summary.TotalCount)
	}
	fmt.Fprintf(out, "%s completed: %d/%d items succeeded\n", mon.Class(), summary.SuccessCount, summary.TotalCount)
	return nil
}

// progressPrinter turns monitor events into terse progress lines. Events
// arrive on the polling goroutine; the mutex only guards the abort reason
// read back by the command goroutine.
type progressPrinter struct {
	out io.Writer

	mu     sync.Mutex
	reason string
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out}
}

func (p *progressPrinter) observe(event engine.Event) {
	switch event.Kind {
	case engine.EventTick:
		if !event.Changed || event.Snapshot == nil {
			return
		}
		snap := event.Snapshot
		fmt.Fprintf(p.out, "%s %s: %d%% (%d done, %d failed of %d)\n",
			event.Class, snap.Status, snap.Progress,
			snap.CompletedCount, snap.FailedCount, snap.TotalCount)
	case engine.EventPaused:
		fmt.Fprintf(p.out, "%s paused\n", event.Class)
	case engine.EventResumed:
		fmt.Fprintf(p.out, "%s resumed\n", event.Class)
	case engine.EventTerminal:
		if event.Summary != nil {
			fmt.Fprintf(p.out, "%s finished: %d succeeded, %d failed\n",
				event.Class, event.Summary.SuccessCount, event.Summary.FailureCount)
		}
	case engine.EventAborted:
		p.mu.Lock()
		p.reason = string(event.Reason)
		p.mu.Unlock()
		fmt.Fprintf(p.out, "%s aborted: %s\n", event.Class, event.Reason)
	}
}

func (p *progressPrinter) abortReason() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reason
}

func renderItemTable(items []*engine.Item) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.Itoa(item.Index),
			item.Path,
			string(item.Status),
			strconv.Itoa(item.Progress) + "%",
			item.Stage,
		})
	}
	return renderTable(
		[]string{"#", "File", "Status", "Progress", "Stage"},
		rows,
		map[int]bool{0: true, 3: true},
	)
}
