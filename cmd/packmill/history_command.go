package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"packmill/internal/history"
)

func newHistoryCommand(cctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently finished operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No operations recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.FinishedAt.Local().Format(time.DateTime),
					entry.Class,
					entry.Status,
					fmt.Sprintf("%d/%d", entry.SuccessCount, entry.TotalCount),
					strconv.Itoa(entry.FailureCount),
					entry.ErrorMessage,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Finished", "Class", "Status", "Succeeded", "Failed", "Error"},
				rows,
				map[int]bool{3: true, 4: true},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")
	return cmd
}
