package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tracklist/internal/engine"
	"tracklist/internal/media"
)

func newLibraryCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newPlayCommand(ctx),
		newNewEpisodesCommand(ctx),
	}
}

func newPlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play <id> [episode]",
		Short: "Play an episode from the search directories",
		Long:  "Play an episode from the search directories. Without an episode number the next unwatched one is played.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ep := 0
			if len(args) == 2 {
				if ep, err = strconv.Atoi(strings.TrimSpace(args[1])); err != nil || ep < 1 {
					return fmt.Errorf("invalid episode %q", args[1])
				}
			}
			return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine) error {
				_, err := eng.PlayEpisode(runCtx, id, ep)
				return err
			})
		},
	}
}

func newNewEpisodesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "neweps [id...]",
		Short: "List items with unwatched episodes in the search directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]media.ID, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine) error {
				mt, err := eng.Mediatype()
				if err != nil {
					return err
				}
				items, err := eng.GetNewEpisodes(runCtx, ids...)
				if err != nil {
					return err
				}
				renderItems(cmd, mt, items)
				return nil
			})
		},
	}
}
