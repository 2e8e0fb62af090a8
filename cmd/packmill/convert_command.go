package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"packmill/internal/engine"
	"packmill/internal/worker"
)

func newConvertCommand(cctx *commandContext) *cobra.Command {
	var outputDir string
	var format string
	var quality string

	cmd := &cobra.Command{
		Use:   "convert <files...>",
		Short: "Convert media files on the worker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			params := worker.ConvertParams{
				OutputDir: strings.TrimSpace(outputDir),
				Format:    strings.TrimSpace(format),
				Quality:   strings.TrimSpace(quality),
			}
			if params.OutputDir == "" {
				params.OutputDir = cfg.OutputDir
			}
			return runOperation(cctx, cmd, func(ctx context.Context, eng *engine.Engine) (*engine.Monitor, error) {
				return eng.StartConvert(ctx, args, params)
			})
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for converted files (defaults to output_dir from config)")
	cmd.Flags().StringVar(&format, "format", "", "Target container format")
	cmd.Flags().StringVar(&quality, "quality", "", "Quality preset passed to the worker")
	return cmd
}
