package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"packmill/internal/authflow"
	"packmill/internal/engine"
	"packmill/internal/notifications"
	"packmill/internal/worker"
)

func newConnectCommand(cctx *commandContext) *cobra.Command {
	var account string
	var apiKey string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect a remote account, answering challenges interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			runCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()
			reader := bufio.NewReader(cmd.InOrStdin())

			account = strings.TrimSpace(account)
			if account == "" {
				fmt.Fprint(out, "Account: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read account: %w", err)
				}
				account = strings.TrimSpace(line)
			}
			if account == "" {
				return errors.New("account is required")
			}

			registry := engine.NewRegistry(cfg.LockDir, logger)
			ctrl := authflow.New(cfg, client, registry, logger)

			if err := ctrl.Connect(runCtx, worker.Credentials{Account: account, APIKey: strings.TrimSpace(apiKey)}); err != nil {
				return err
			}
			if err := answerChallenges(runCtx, ctrl, reader, out); err != nil {
				return err
			}

			fmt.Fprintf(out, "Connected as %s\n", account)
			if err := notifications.NewService(cfg).NotifyConnected(context.Background(), account); err != nil {
				logger.Warn("connect notification failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&account, "account", "a", "", "Account identifier (prompted when omitted)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for the account service")
	return cmd
}

// answerChallenges loops until the handshake settles: the worker decides
// which challenge comes next, the user answers it. A rejected answer keeps
// the same challenge; transport failures end the attempt.
func answerChallenges(ctx context.Context, ctrl *authflow.Controller, reader *bufio.Reader, out io.Writer) error {
	for {
		switch phase := ctrl.Phase(); phase {
		case authflow.PhaseConnected:
			return nil
		case authflow.PhaseAwaitingCode:
			fmt.Fprint(out, "Login code (5 digits): ")
			code, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read login code: %w", err)
			}
			if err := ctrl.SubmitCode(ctx, strings.TrimSpace(code)); err != nil {
				if retryableAnswer(err) {
					fmt.Fprintf(out, "Code not accepted: %v\n", err)
					continue
				}
				return err
			}
		case authflow.PhaseAwaitingPassword:
			fmt.Fprint(out, "Password: ")
			password, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if err := ctrl.SubmitPassword(ctx, strings.TrimRight(password, "\r\n")); err != nil {
				if retryableAnswer(err) {
					fmt.Fprintf(out, "Password not accepted: %v\n", err)
					continue
				}
				return err
			}
		default:
			return fmt.Errorf("handshake ended in phase %s", phase)
		}
	}
}

// retryableAnswer reports whether the user should be re-prompted for the
// same challenge: local validation failures and server rejections keep the
// phase, everything else aborts.
func retryableAnswer(err error) bool {
	if errors.Is(err, authflow.ErrInvalidCode) || errors.Is(err, authflow.ErrEmptyPassword) {
		return true
	}
	return worker.IsKind(err, worker.KindRejected)
}
