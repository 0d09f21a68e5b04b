package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tracklist/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var raw bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display the latest session log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			path, ok, err := logs.Latest(cfg.LogDir())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "No log entries available")
				return nil
			}

			print := func(line string) {
				if !raw {
					line = logs.Format(line)
				}
				fmt.Fprintln(out, line)
			}

			opts := logs.Options{Offset: -1, Limit: lines}
			if lines <= 0 {
				opts = logs.Options{Offset: 0}
			}
			res, err := logs.Tail(path, opts)
			if err != nil {
				return fmt.Errorf("tail logs: %w", err)
			}
			for _, line := range res.Lines {
				print(line)
			}
			if !follow {
				if len(res.Lines) == 0 {
					fmt.Fprintln(out, "No log entries available")
				}
				return nil
			}
			return logs.Follow(cmd.Context(), path, res.Offset, 250*time.Millisecond, print)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON records as written")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}
