package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"packmill/internal/engine"
	"packmill/internal/worker"
)

func newPatchCommand(cctx *commandContext) *cobra.Command {
	var outputDir string
	var loop bool

	cmd := &cobra.Command{
		Use:   "patch <files...>",
		Short: "Patch binary metadata on the worker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			params := worker.PatchParams{
				OutputDir: strings.TrimSpace(outputDir),
				Loop:      loop,
			}
			if params.OutputDir == "" {
				params.OutputDir = cfg.OutputDir
			}
			return runOperation(cctx, cmd, func(ctx context.Context, eng *engine.Engine) (*engine.Monitor, error) {
				return eng.StartPatch(ctx, args, params)
			})
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for patched files (defaults to output_dir from config)")
	cmd.Flags().BoolVar(&loop, "loop", false, "Mark the patched output as looping")
	return cmd
}
