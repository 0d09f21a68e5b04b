package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tracklist/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, the player and the tracker backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failed := 0
			for _, result := range preflight.RunAll(runCtx, cfg) {
				kind := statusOK
				switch {
				case result.Passed:
				case result.Optional:
					kind = statusWarn
				default:
					kind = statusError
					failed++
				}
				fmt.Fprintln(out, renderStatusLine(kind, fmt.Sprintf("%-20s %s", result.Name+":", result.Detail), colorize))
			}
			if failed > 0 {
				return fmt.Errorf("%d checks failed", failed)
			}
			return nil
		},
	}
}
