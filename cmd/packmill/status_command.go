package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Probe worker availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := cctx.workerClient()
			if err != nil {
				return err
			}
			if err := client.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("worker at %s is not responding: %w", cfg.WorkerURL, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Worker at %s is reachable\n", cfg.WorkerURL)
			return nil
		},
	}
}
