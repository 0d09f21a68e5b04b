package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tracklist/internal/engine"
)

func newSyncCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "send",
			Short: "Send queued changes to the site",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine) error {
					sent, err := eng.ListUpload(runCtx)
					if err != nil {
						return err
					}
					if sent == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "Nothing to send")
					}
					return nil
				})
			},
		},
		{
			Use:   "retrieve",
			Short: "Download the list from the site",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine) error {
					return eng.ListDownload(runCtx)
				})
			},
		},
		{
			Use:   "undo",
			Short: "Discard every queued change",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine) error {
					_, err := eng.UndoAll(runCtx)
					return err
				})
			},
		},
	}
}
