package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"packmill/internal/engine"
	"packmill/internal/packtitle"
	"packmill/internal/worker"
)

func newPublishCommand(cctx *commandContext) *cobra.Command {
	var title string
	var shortName string

	cmd := &cobra.Command{
		Use:   "publish <files...>",
		Short: "Publish files as a pack on the worker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return errors.New("--title is required")
			}
			name := strings.TrimSpace(shortName)
			if err := packtitle.ValidateShortName(name); err != nil {
				return fmt.Errorf("--short-name: %w", err)
			}
			params := worker.PublishParams{
				Title:     packtitle.Normalize(title),
				ShortName: name,
			}
			return runOperation(cctx, cmd, func(ctx context.Context, eng *engine.Engine) (*engine.Monitor, error) {
				return eng.StartPublish(ctx, args, params)
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Pack title shown to users")
	cmd.Flags().StringVarP(&shortName, "short-name", "s", "", "Pack short name (lowercase letters, digits, underscore)")
	return cmd
}
